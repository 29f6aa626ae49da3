package knowledge

import (
	"context"

	"github.com/yanqian/faq-chat/internal/domain/language"
)

// Reserved category ids that historically mark the negative-feedback lexicon
// when the content store carries no explicit language marker.
const (
	reservedFeedbackPortuguese int64 = 999
	reservedFeedbackEnglish    int64 = 998
)

// Category is a topic grouping of FAQ entries. Keywords drive classification;
// FeedbackFor marks the category as the negative-feedback lexicon for a
// language instead of a retrievable topic.
type Category struct {
	ID          int64
	Name        string
	Keywords    []string
	FeedbackFor language.Tag
}

// Entry is a question/answer pair as stored by the content store. Language is
// the raw label; classification into the closed tag set happens at build time.
// Embedding is optional precomputed data reused to skip re-embedding.
type Entry struct {
	Question  string
	Answer    string
	Language  string
	Embedding []float32
}

// TenantProfile carries the per-tenant conversational messages authored in
// the admin UI. Missing entries fall back to configured defaults.
type TenantProfile struct {
	Greeting map[language.Tag]string
	NoAnswer map[language.Tag]string
}

// ContentStore abstracts the external FAQ authoring backend. Calls must be
// idempotent and side-effect free.
type ContentStore interface {
	ListCategories(ctx context.Context, tenantID string) ([]Category, error)
	ListEntries(ctx context.Context, tenantID string, categoryID int64) ([]Entry, error)
	TenantProfile(ctx context.Context, tenantID string) (TenantProfile, error)
}

// EmbeddingWriter is optionally implemented by content stores that can
// persist computed question embeddings for reuse across cache generations.
type EmbeddingWriter interface {
	SaveEmbeddings(ctx context.Context, tenantID string, categoryID int64, questions []string, vectors [][]float32) error
}

// Embedder abstracts the external embedding function. Vectors must be
// deterministic for identical input within one cache generation.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BucketKey addresses the FAQ entries of one (category, language) pair.
type BucketKey struct {
	CategoryID int64
	Language   language.Tag
}

// Bucket holds the questions and answers of one key plus the vector index
// over the question embeddings. Read-only after the generation is built.
type Bucket struct {
	Questions []string
	Answers   []string
	index     *FlatIndex
}

// Size returns the number of entries in the bucket.
func (b *Bucket) Size() int {
	return len(b.Answers)
}

// Candidate is a scored (question, answer) pair proposed by a retrieval
// strategy. Higher scores rank first regardless of strategy.
type Candidate struct {
	Question string
	Answer   string
	Score    float64
}
