// Package tokens estimates prompt sizes with the cl100k_base encoding.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	once sync.Once
	enc  *tiktoken.Tiktoken
)

func encoder() *tiktoken.Tiktoken {
	once.Do(func() {
		// nil encoder falls back to a byte estimate; loading may need network for the BPE file
		enc, _ = tiktoken.GetEncoding("cl100k_base")
	})
	return enc
}

// Count returns the number of tokens in text, or len/4 when the encoding is unavailable.
func Count(text string) int {
	if text == "" {
		return 0
	}
	if e := encoder(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}
