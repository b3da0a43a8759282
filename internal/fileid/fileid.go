// Package fileid derives deterministic identifiers from file names and positions.
// Identifiers depend only on the source name and the position inside the source,
// never on content, so re-ingesting an unchanged file reproduces the same ids.
package fileid

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SourceName returns the provenance name for path: its base name.
func SourceName(path string) string {
	return filepath.Base(filepath.Clean(path))
}

// PageBlockID identifies block b (0-based) on page p (1-based) of a paged document.
func PageBlockID(sourceName string, page, block int) string {
	return fmt.Sprintf("%s_p%d_%d", sourceName, page, block)
}

// ParagraphID identifies paragraph i (0-based) of an unpaged document.
func ParagraphID(sourceName string, index int) string {
	return fmt.Sprintf("%s_para%d", sourceName, index)
}

var (
	nonWord   = regexp.MustCompile(`[^\w\s-]`)
	separator = regexp.MustCompile(`[\s_-]+`)
)

// NormalizeName folds name to lowercase ASCII word characters separated by single underscores.
func NormalizeName(name string) string {
	decomposed := norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	s := strings.ToLower(b.String())
	s = nonWord.ReplaceAllString(s, "")
	s = separator.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ShortHash returns the first n hex characters of the MD5 of s.
func ShortHash(s string, n int) string {
	sum := md5.Sum([]byte(s))
	h := hex.EncodeToString(sum[:])
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}

// NormalizeMediaName returns the canonical file name used for converted media:
// "<normalized stem>__<8 hex chars of md5(stem)><ext>". The hash keeps names that
// normalize to the same stem distinct.
func NormalizeMediaName(fileName string) string {
	base := filepath.Base(fileName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return NormalizeName(stem) + "__" + ShortHash(stem, 8) + ext
}
