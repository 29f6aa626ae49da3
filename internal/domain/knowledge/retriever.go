package knowledge

import (
	"context"
	"log/slog"

	"github.com/yanqian/faq-chat/internal/domain/language"
	apperrors "github.com/yanqian/faq-chat/pkg/errors"
)

// Strategy selects how candidates are scored.
type Strategy string

const (
	// StrategyLexical scores candidates by string similarity ratio between
	// the normalized input and each stored question.
	StrategyLexical Strategy = "lexical"
	// StrategyVector scores candidates by nearest-neighbor search over the
	// bucket's question embeddings.
	StrategyVector Strategy = "vector"
)

// RetrieverConfig tunes candidate generation. The floors and ceiling are
// deliberately configuration, not constants: authored content differs widely
// in phrasing density.
type RetrieverConfig struct {
	// LexicalFloor is the minimum similarity ratio a lexical candidate must
	// reach.
	LexicalFloor float64
	// VectorFloor is the minimum converted similarity a vector candidate
	// must reach.
	VectorFloor float64
	// MaxDistance discards vector hits above this raw distance, guarding
	// against un-normalized indexes. Zero disables the ceiling.
	MaxDistance float64
	// TopK is how many neighbors each bucket search returns.
	TopK int
}

// Retriever produces scored candidates from knowledge base buckets.
type Retriever struct {
	embedder Embedder
	cfg      RetrieverConfig
	logger   *slog.Logger
}

// NewRetriever wires up a retriever.
func NewRetriever(embedder Embedder, cfg RetrieverConfig, logger *slog.Logger) *Retriever {
	if cfg.LexicalFloor <= 0 {
		cfg.LexicalFloor = 0.3
	}
	if cfg.VectorFloor <= 0 {
		cfg.VectorFloor = 0.6
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Retriever{embedder: embedder, cfg: cfg, logger: logger.With("component", "knowledge.retriever")}
}

// Retrieve concatenates candidates from every listed category's bucket for
// the given language. Categories without a bucket contribute nothing. The
// result is unordered; callers rank it with Rank.
func (r *Retriever) Retrieve(ctx context.Context, strategy Strategy, input string, gen *Generation, categoryIDs []int64, tag language.Tag) ([]Candidate, error) {
	switch strategy {
	case StrategyVector:
		return r.vector(ctx, input, gen, categoryIDs, tag)
	default:
		return r.lexical(input, gen, categoryIDs, tag), nil
	}
}

func (r *Retriever) lexical(input string, gen *Generation, categoryIDs []int64, tag language.Tag) []Candidate {
	norm := language.Normalize(input)
	var out []Candidate
	for _, id := range categoryIDs {
		bucket, ok := gen.Bucket(id, tag)
		if !ok {
			continue
		}
		for i, question := range bucket.Questions {
			ratio := lexicalRatio(language.Normalize(question), norm)
			if ratio < r.cfg.LexicalFloor {
				continue
			}
			out = append(out, Candidate{Question: question, Answer: bucket.Answers[i], Score: ratio})
		}
	}
	return out
}

func (r *Retriever) vector(ctx context.Context, input string, gen *Generation, categoryIDs []int64, tag language.Tag) ([]Candidate, error) {
	vectors, err := r.embedder.Embed(ctx, []string{input})
	if err != nil {
		return nil, apperrors.Wrap("embedding_error", "embed query failed", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, apperrors.Wrap("embedding_error", "embedder returned no vector", nil)
	}
	query := L2Normalize(vectors[0])

	var out []Candidate
	for _, id := range categoryIDs {
		bucket, ok := gen.Bucket(id, tag)
		if !ok {
			continue
		}
		for _, hit := range bucket.index.Search(query, r.cfg.TopK) {
			if hit.Position >= len(bucket.Answers) {
				continue
			}
			if r.cfg.MaxDistance > 0 && hit.Distance > r.cfg.MaxDistance {
				continue
			}
			similarity := 1 - hit.Distance/2
			if similarity < r.cfg.VectorFloor {
				continue
			}
			out = append(out, Candidate{
				Question: bucket.Questions[hit.Position],
				Answer:   bucket.Answers[hit.Position],
				Score:    similarity,
			})
		}
	}
	return out, nil
}
