package filter

import (
	"github.com/ytfilter/sieve/filter/textnorm"
)

// Normalize canonicalizes comment text for matching. See textnorm.Normalize.
func Normalize(text string) string {
	return textnorm.Normalize(text)
}
