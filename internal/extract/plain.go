package extract

import (
	"strings"
	"unicode/utf8"
)

// plainParagraphs splits text on blank lines, trims each block and drops empty ones.
// Invalid UTF-8 sequences are replaced with the replacement character.
func plainParagraphs(content []byte) []string {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(s, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}
