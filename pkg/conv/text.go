package conv

import (
	"strings"

	"github.com/inbucket/html2text"
)

// TelegramHTMLToText recovers the text a user actually sees from a rendered message.
func TelegramHTMLToText(s string) string {
	text, err := html2text.FromString(s, html2text.Options{
		OmitLinks:    true,
		PrettyTables: false,
	})
	if err != nil {
		return s
	}
	return strings.TrimSpace(text)
}
