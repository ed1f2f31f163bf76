// Package normalizer handles title normalization for Bookshelf.
package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Title returns the key form of a title used by the search index.
// It lower-cases every rune and leaves everything else untouched: digits,
// punctuation and surrounding whitespace are kept as opaque symbols so the
// index never trims or rewrites what the user typed. Bytes that are not
// valid UTF-8 are copied through as they are.
func Title(title string) string {
	if utf8.ValidString(title) {
		return strings.ToLower(title)
	}

	var b strings.Builder
	b.Grow(len(title))
	for i := 0; i < len(title); {
		r, size := utf8.DecodeRuneInString(title[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(title[i])
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		i += size
	}
	return b.String()
}
