package language

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var combiningMarks = runes.In(unicode.Mn)

// Normalize lower-cases the input and strips diacritics via canonical
// decomposition. It never fails: if a character cannot be decomposed the
// trimmed lower-cased input is returned as-is.
func Normalize(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	stripper := transform.Chain(norm.NFD, runes.Remove(combiningMarks), norm.NFC)
	out, _, err := transform.String(stripper, lowered)
	if err != nil {
		return lowered
	}
	return out
}

// NormalizeStrict additionally drops punctuation and symbols, keeping only
// letters, digits and whitespace. Used where keyword membership and state
// comparisons need a stable canonical form.
func NormalizeStrict(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range Normalize(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
