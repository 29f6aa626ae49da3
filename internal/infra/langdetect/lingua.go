package langdetect

import (
	"context"
	"errors"

	"github.com/pemistahl/lingua-go"

	"github.com/yanqian/faq-chat/internal/domain/language"
)

// LinguaDetector identifies the language of an utterance using n-gram models
// restricted to the two supported languages.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds the detector. Model data loads lazily on first use.
func NewLinguaDetector() *LinguaDetector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.Portuguese, lingua.English).
		Build()
	return &LinguaDetector{detector: detector}
}

// Detect returns the most likely language tag with its confidence.
func (d *LinguaDetector) Detect(_ context.Context, text string) (language.Detection, error) {
	detected, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return language.Detection{}, errors.New("language not identifiable")
	}

	var tag language.Tag
	switch detected {
	case lingua.Portuguese:
		tag = language.Portuguese
	case lingua.English:
		tag = language.English
	default:
		return language.Detection{}, errors.New("unsupported language detected")
	}

	return language.Detection{
		Tag:        tag,
		Confidence: d.detector.ComputeLanguageConfidence(text, detected),
	}, nil
}

var _ language.Detector = (*LinguaDetector)(nil)
