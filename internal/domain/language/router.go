package language

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Detection is the outcome of an external language detector call.
type Detection struct {
	Tag        Tag
	Confidence float64
}

// Detector abstracts the external language detection collaborator.
type Detector interface {
	Detect(ctx context.Context, text string) (Detection, error)
}

// RouterConfig tunes routing behavior.
type RouterConfig struct {
	// Default is returned whenever detection is unreliable or fails.
	Default Tag
	// MinDetectLength is the minimum rune count for which detection output
	// is trusted at all.
	MinDetectLength int
	// SecondaryConfidence is the confidence the detector must report before
	// a non-default language is accepted.
	SecondaryConfidence float64
}

// Router classifies utterances into the closed language set.
type Router struct {
	detector Detector
	cfg      RouterConfig
	logger   *slog.Logger
}

// NewRouter wires up the language router.
func NewRouter(detector Detector, cfg RouterConfig, logger *slog.Logger) *Router {
	if cfg.Default == "" {
		cfg.Default = Portuguese
	}
	if cfg.MinDetectLength <= 0 {
		cfg.MinDetectLength = 10
	}
	if cfg.SecondaryConfidence <= 0 {
		cfg.SecondaryConfidence = 0.90
	}
	return &Router{detector: detector, cfg: cfg, logger: logger.With("component", "language.router")}
}

// Route resolves the language of an utterance. Detector failures never abort
// a request: they downgrade to the default language.
func (r *Router) Route(ctx context.Context, text string) Tag {
	norm := NormalizeStrict(text)

	// Tiny greetings defeat statistical detection, so match them first.
	for _, tag := range []Tag{English, Portuguese} {
		if _, ok := greetingSets[tag][norm]; ok {
			return tag
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < r.cfg.MinDetectLength {
		return r.cfg.Default
	}

	if r.detector == nil {
		return r.cfg.Default
	}
	det, err := r.detector.Detect(ctx, text)
	if err != nil {
		r.logger.Warn("language detection failed", "error", err)
		return r.cfg.Default
	}
	if det.Tag != r.cfg.Default && det.Confidence >= r.cfg.SecondaryConfidence {
		return det.Tag
	}
	return r.cfg.Default
}

// IsGreeting reports whether the utterance is a salutation in the given
// language: an exact lexicon match, or a short phrase starting with one.
func (r *Router) IsGreeting(text string, tag Tag) bool {
	norm := NormalizeStrict(text)
	set := greetingSets[tag]
	if _, ok := set[norm]; ok {
		return true
	}
	if len(strings.Fields(norm)) > 3 {
		return false
	}
	for greet := range set {
		if strings.HasPrefix(norm, greet) {
			return true
		}
	}
	return false
}

var greetingLexicon = map[Tag][]string{
	Portuguese: {
		"ola", "olá", "oi", "bom dia", "boa tarde", "boa noite",
		"alô", "alo", "e aí", "fala", "boas", "opa", "tudo bem", "beleza",
	},
	English: {
		"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
		"howdy", "greetings", "whats up", "yo", "sup", "hiya",
	},
}

var greetingSets = func() map[Tag]map[string]struct{} {
	sets := make(map[Tag]map[string]struct{}, len(greetingLexicon))
	for tag, phrases := range greetingLexicon {
		set := make(map[string]struct{}, len(phrases))
		for _, phrase := range phrases {
			set[NormalizeStrict(phrase)] = struct{}{}
		}
		sets[tag] = set
	}
	return sets
}()
