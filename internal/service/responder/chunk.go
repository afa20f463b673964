package responder

import "strings"

// Chunk splits text into pieces of at most size runes, cutting at the last
// newline inside a piece when there is one.
func Chunk(text string, size int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for len(runes) > size {
		cut := size
		if i := lastNewline(runes[:size]); i > 0 {
			cut = i + 1
		}
		if piece := strings.TrimRight(string(runes[:cut]), "\n"); piece != "" {
			chunks = append(chunks, piece)
		}
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
