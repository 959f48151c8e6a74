package tokenize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize folds half-width characters to their full-width forms, composes
// voiced sound marks with the preceding kana and drops control characters. Applying it twice gives the same result as applying it once.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// Widen turns ﾞ and ﾟ into combining marks; NFC folds them into the kana.
	widened := norm.NFC.String(width.Widen.String(text))
	// Keep newlines and tabs so callers can still see line structure.
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, widened)
}
