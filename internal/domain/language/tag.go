package language

import "strings"

// Tag identifies one of the closed set of supported languages.
type Tag string

const (
	// Portuguese is the primary (default) language.
	Portuguese Tag = "pt"
	// English is the secondary language.
	English Tag = "en"
)

// ParseTag maps the free-form language labels found on stored FAQ entries to
// the closed tag set. Unknown labels classify as English, matching how the
// knowledge base has historically been authored.
func ParseTag(raw string) Tag {
	n := Normalize(raw)
	if strings.HasPrefix(n, "pt") || strings.HasPrefix(n, "portugues") {
		return Portuguese
	}
	return English
}
