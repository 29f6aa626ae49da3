package knowledge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/yanqian/faq-chat/internal/domain/language"
	apperrors "github.com/yanqian/faq-chat/pkg/errors"
)

type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		src, ok := s.vectors[text]
		if !ok {
			src = []float32{0, 0}
		}
		vec := make([]float32, len(src))
		copy(vec, src)
		out[i] = vec
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vectorGeneration(t *testing.T) *Generation {
	t.Helper()
	index, err := NewFlatIndex([][]float32{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}
	return &Generation{
		buckets: map[BucketKey]*Bucket{
			{CategoryID: 1, Language: language.Portuguese}: {
				Questions: []string{"como emitir segunda via da fatura", "cartao bloqueado"},
				Answers:   []string{"acesse o portal", "va ate uma agencia"},
				index:     index,
			},
		},
	}
}

func TestRetrieveLexical(t *testing.T) {
	gen := vectorGeneration(t)
	retriever := NewRetriever(&stubEmbedder{}, RetrieverConfig{}, testLogger())

	candidates, err := retriever.Retrieve(context.Background(), StrategyLexical, "Como emitir segunda via da fatura?", gen, []int64{1, 7}, language.Portuguese)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %+v, want exactly the matching question", candidates)
	}
	if candidates[0].Answer != "acesse o portal" || candidates[0].Score < 0.9 {
		t.Fatalf("unexpected candidate %+v", candidates[0])
	}
}

func TestRetrieveLexicalMissingBucket(t *testing.T) {
	gen := vectorGeneration(t)
	retriever := NewRetriever(&stubEmbedder{}, RetrieverConfig{}, testLogger())

	candidates, err := retriever.Retrieve(context.Background(), StrategyLexical, "fatura", gen, []int64{1}, language.English)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("missing bucket must contribute nothing, got %+v", candidates)
	}
}

func TestRetrieveVector(t *testing.T) {
	gen := vectorGeneration(t)
	emb := &stubEmbedder{vectors: map[string][]float32{
		"fatura por favor": {1, 0},
	}}
	retriever := NewRetriever(emb, RetrieverConfig{}, testLogger())

	candidates, err := retriever.Retrieve(context.Background(), StrategyVector, "fatura por favor", gen, []int64{1}, language.Portuguese)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// The orthogonal second entry converts to similarity 0 and is floored out.
	if len(candidates) != 1 {
		t.Fatalf("candidates = %+v, want exactly one above the floor", candidates)
	}
	if candidates[0].Question != "como emitir segunda via da fatura" || candidates[0].Score < 0.99 {
		t.Fatalf("unexpected candidate %+v", candidates[0])
	}
	if emb.calls != 1 {
		t.Fatalf("query embedded %d times, want once", emb.calls)
	}
}

func TestRetrieveVectorMaxDistance(t *testing.T) {
	gen := vectorGeneration(t)
	emb := &stubEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	retriever := NewRetriever(emb, RetrieverConfig{VectorFloor: 0.01, MaxDistance: 1.0}, testLogger())

	candidates, err := retriever.Retrieve(context.Background(), StrategyVector, "q", gen, []int64{1}, language.Portuguese)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("distance ceiling not applied, candidates = %+v", candidates)
	}
}

func TestRetrieveVectorEmbedderFailure(t *testing.T) {
	gen := vectorGeneration(t)
	retriever := NewRetriever(&stubEmbedder{err: errors.New("api down")}, RetrieverConfig{}, testLogger())

	_, err := retriever.Retrieve(context.Background(), StrategyVector, "fatura", gen, []int64{1}, language.Portuguese)
	if !apperrors.IsCode(err, "embedding_error") {
		t.Fatalf("expected embedding_error, got %v", err)
	}
}
