package knowledge

import (
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/yanqian/faq-chat/internal/domain/language"
)

// Generation is one complete, atomically published build of a tenant's
// knowledge base. All fields are immutable after construction.
type Generation struct {
	categories []Category
	feedback   map[language.Tag]int64
	buckets    map[BucketKey]*Bucket
	profile    TenantProfile
	builtAt    time.Time
}

// Categories returns the category definitions in authoring order.
func (g *Generation) Categories() []Category {
	return g.categories
}

// BuiltAt reports when this generation was published.
func (g *Generation) BuiltAt() time.Time {
	return g.builtAt
}

// Bucket looks up the entries for a (category, language) pair.
func (g *Generation) Bucket(categoryID int64, tag language.Tag) (*Bucket, bool) {
	b, ok := g.buckets[BucketKey{CategoryID: categoryID, Language: tag}]
	return b, ok
}

// DetectCategories returns the ids of every category with at least one
// keyword contained in the normalized input, in authoring order. An empty
// result means the question cannot be routed, not that no answer exists.
func (g *Generation) DetectCategories(input string) []int64 {
	norm := language.NormalizeStrict(input)
	var ids []int64
	for _, cat := range g.categories {
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(norm, kw) {
				ids = append(ids, cat.ID)
				break
			}
		}
	}
	return ids
}

// IsNegativeFeedback reports whether the utterance matches the
// negative-feedback lexicon for the given language.
func (g *Generation) IsNegativeFeedback(input string, tag language.Tag) bool {
	id, ok := g.feedback[tag]
	if !ok {
		return false
	}
	norm := language.NormalizeStrict(input)
	for _, cat := range g.categories {
		if cat.ID != id {
			continue
		}
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(norm, kw) {
				return true
			}
		}
	}
	return false
}

// SuggestCategories proposes up to max category names whose name or keywords
// loosely resemble the input. Used to soften classification misses.
func (g *Generation) SuggestCategories(input string, max int) []string {
	const suggestionFloor = 0.10

	norm := language.Normalize(input)
	type scored struct {
		score float64
		name  string
	}
	var ranked []scored
	for _, cat := range g.categories {
		if cat.FeedbackFor != "" {
			continue
		}
		best := 0.0
		for _, token := range append([]string{language.Normalize(cat.Name)}, cat.Keywords...) {
			if token == "" {
				continue
			}
			if r := lexicalRatio(norm, token); r > best {
				best = r
			}
		}
		if best >= suggestionFloor {
			ranked = append(ranked, scored{score: best, name: cat.Name})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	names := make([]string, len(ranked))
	for i, s := range ranked {
		names[i] = s.name
	}
	return names
}

// Greeting returns the tenant's greeting message for a language, if authored.
func (g *Generation) Greeting(tag language.Tag) (string, bool) {
	msg, ok := g.profile.Greeting[tag]
	return msg, ok && msg != ""
}

// NoAnswer returns the tenant's no-answer message for a language, if authored.
func (g *Generation) NoAnswer(tag language.Tag) (string, bool) {
	msg, ok := g.profile.NoAnswer[tag]
	return msg, ok && msg != ""
}

// lexicalRatio is the Ratcliff/Obershelp similarity between two strings,
// computed rune-wise so multi-byte characters compare correctly.
func lexicalRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	matcher := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return matcher.Ratio()
}
