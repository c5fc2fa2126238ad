// Canonical form of comment text for word matching. Used both for comment
// text and for dictionary entries, so the two always compare equal.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

func IsHangulSyllable(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

// Keep reports whether a rune of lower-cased text survives normalization.
func Keep(r rune) bool {
	return IsHangulSyllable(r) || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || unicode.IsSpace(r)
}

// Normalize lower-cases text and removes every character that isn't a Hangul
// syllable, a latin letter, a digit, or whitespace.
//
// Input is NFC-composed first, so decomposed (jamo) Hangul still survives as
// syllables. The function is total and idempotent.
func Normalize(text string) string {
	lower := strings.ToLower(norm.NFC.String(text))
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if Keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
