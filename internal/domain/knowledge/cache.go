package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/yanqian/faq-chat/internal/domain/language"
	apperrors "github.com/yanqian/faq-chat/pkg/errors"
	"github.com/yanqian/faq-chat/pkg/util"
)

// CacheConfig bounds the per-tenant generation store.
type CacheConfig struct {
	// MaxTenants caps how many generations stay resident; least recently
	// used tenants are evicted and rebuilt on next access.
	MaxTenants int
	// TTL expires generations so content edits eventually surface even
	// without an explicit reload.
	TTL time.Duration
	// BuildTimeout bounds one full build including collaborator calls.
	BuildTimeout time.Duration
}

// Cache owns the lifecycle of tenant knowledge base generations: lazy
// build on first access, at-most-once builds under concurrent access, and
// explicit invalidation.
type Cache struct {
	store    ContentStore
	embedder Embedder
	cfg      CacheConfig
	logger   *slog.Logger

	group       singleflight.Group
	generations *expirable.LRU[string, *Generation]
}

// NewCache wires up the knowledge base cache.
func NewCache(store ContentStore, embedder Embedder, cfg CacheConfig, logger *slog.Logger) *Cache {
	if cfg.MaxTenants <= 0 {
		cfg.MaxTenants = 128
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 60 * time.Second
	}
	return &Cache{
		store:       store,
		embedder:    embedder,
		cfg:         cfg,
		logger:      logger.With("component", "knowledge.cache"),
		generations: expirable.NewLRU[string, *Generation](cfg.MaxTenants, nil, cfg.TTL),
	}
}

// Get returns the tenant's current generation, building it if absent.
// Concurrent first accesses share a single build; a failed build publishes
// nothing, so the next access retries.
func (c *Cache) Get(ctx context.Context, tenantID string) (*Generation, error) {
	if gen, ok := c.generations.Get(tenantID); ok {
		return gen, nil
	}
	result, err, _ := c.group.Do(tenantID, func() (any, error) {
		if gen, ok := c.generations.Get(tenantID); ok {
			return gen, nil
		}
		// Detached from the request context so one caller's cancellation
		// cannot poison the build shared with other waiters.
		buildCtx, cancel := context.WithTimeout(context.Background(), c.cfg.BuildTimeout)
		defer cancel()
		gen, err := c.build(buildCtx, tenantID)
		if err != nil {
			return nil, err
		}
		c.generations.Add(tenantID, gen)
		return gen, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Generation), nil
}

// Invalidate discards the tenant's generation; the next access rebuilds.
func (c *Cache) Invalidate(tenantID string) {
	if c.generations.Remove(tenantID) {
		c.logger.Info("knowledge cache invalidated", "tenant", tenantID)
	}
}

// Purge drops every generation. Called on shutdown.
func (c *Cache) Purge() {
	c.generations.Purge()
}

// build assembles one complete generation. Any fetch or embedding failure
// aborts the whole build so a half-built generation is never published.
func (c *Cache) build(ctx context.Context, tenantID string) (*Generation, error) {
	started := time.Now()

	rawCategories, err := c.store.ListCategories(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Wrap("content_store_error", "list categories failed", err)
	}

	categories := make([]Category, 0, len(rawCategories))
	feedback := make(map[language.Tag]int64)
	for _, cat := range rawCategories {
		normalized := make([]string, 0, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			if kw = language.Normalize(kw); kw != "" {
				normalized = append(normalized, kw)
			}
		}
		cat.Keywords = normalized
		if cat.FeedbackFor == "" {
			switch cat.ID {
			case reservedFeedbackPortuguese:
				cat.FeedbackFor = language.Portuguese
			case reservedFeedbackEnglish:
				cat.FeedbackFor = language.English
			}
		}
		if cat.FeedbackFor != "" {
			feedback[cat.FeedbackFor] = cat.ID
		}
		categories = append(categories, cat)
	}

	type pending struct {
		key        BucketKey
		questions  []string
		answers    []string
		embeddings [][]float32
		complete   bool
	}
	var order []BucketKey
	partitions := make(map[BucketKey]*pending)

	for _, cat := range categories {
		entries, err := c.store.ListEntries(ctx, tenantID, cat.ID)
		if err != nil {
			return nil, apperrors.Wrap("content_store_error", fmt.Sprintf("list entries for category %d failed", cat.ID), err)
		}
		for _, entry := range entries {
			question := strings.TrimSpace(entry.Question)
			answer := strings.TrimSpace(entry.Answer)
			if question == "" || answer == "" {
				continue
			}
			key := BucketKey{CategoryID: cat.ID, Language: language.ParseTag(entry.Language)}
			p, ok := partitions[key]
			if !ok {
				p = &pending{key: key, complete: true}
				partitions[key] = p
				order = append(order, key)
			}
			p.questions = append(p.questions, question)
			p.answers = append(p.answers, answer)
			p.embeddings = append(p.embeddings, entry.Embedding)
			if len(entry.Embedding) == 0 {
				p.complete = false
			}
		}
	}

	buckets := make(map[BucketKey]*Bucket, len(partitions))
	for _, key := range order {
		p := partitions[key]
		vectors, reused, err := c.bucketVectors(ctx, p.questions, p.embeddings, p.complete)
		if err != nil {
			return nil, apperrors.Wrap("embedding_error", fmt.Sprintf("embed bucket %d/%s failed", key.CategoryID, key.Language), err)
		}
		index, err := NewFlatIndex(vectors)
		if err != nil {
			return nil, apperrors.Wrap("index_error", fmt.Sprintf("index bucket %d/%s failed", key.CategoryID, key.Language), err)
		}
		buckets[key] = &Bucket{Questions: p.questions, Answers: p.answers, index: index}
		if !reused {
			c.persistEmbeddings(ctx, tenantID, key.CategoryID, p.questions, vectors)
		}
	}

	profile := c.fetchProfile(ctx, tenantID)

	c.logger.Info("knowledge cache built",
		"tenant", tenantID,
		"categories", len(categories),
		"buckets", len(buckets),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)

	return &Generation{
		categories: categories,
		feedback:   feedback,
		buckets:    buckets,
		profile:    profile,
		builtAt:    util.NowUTC(),
	}, nil
}

// bucketVectors returns unit-length embeddings for a bucket's questions,
// reusing stored vectors only when every entry carries one of equal size.
func (c *Cache) bucketVectors(ctx context.Context, questions []string, stored [][]float32, complete bool) ([][]float32, bool, error) {
	if complete && sameDimension(stored) {
		vectors := make([][]float32, len(stored))
		for i, v := range stored {
			vec := make([]float32, len(v))
			copy(vec, v)
			vectors[i] = L2Normalize(vec)
		}
		return vectors, true, nil
	}
	vectors, err := c.embedder.Embed(ctx, questions)
	if err != nil {
		return nil, false, err
	}
	if len(vectors) != len(questions) {
		return nil, false, fmt.Errorf("embedder returned %d vectors for %d questions", len(vectors), len(questions))
	}
	for i := range vectors {
		vectors[i] = L2Normalize(vectors[i])
	}
	return vectors, false, nil
}

// persistEmbeddings writes freshly computed vectors back when the content
// store supports it. Best effort: the generation is valid without it.
func (c *Cache) persistEmbeddings(ctx context.Context, tenantID string, categoryID int64, questions []string, vectors [][]float32) {
	writer, ok := c.store.(EmbeddingWriter)
	if !ok {
		return
	}
	if err := writer.SaveEmbeddings(ctx, tenantID, categoryID, questions, vectors); err != nil {
		c.logger.Warn("persisting embeddings failed", "tenant", tenantID, "category", categoryID, "error", err)
	}
}

// fetchProfile loads the tenant's authored messages. Failures fall back to
// configured defaults rather than aborting the build.
func (c *Cache) fetchProfile(ctx context.Context, tenantID string) TenantProfile {
	profile, err := c.store.TenantProfile(ctx, tenantID)
	if err != nil {
		c.logger.Warn("tenant profile fetch failed, using defaults", "tenant", tenantID, "error", err)
		return TenantProfile{}
	}
	return profile
}

func sameDimension(vectors [][]float32) bool {
	if len(vectors) == 0 {
		return false
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return false
		}
	}
	return dim > 0
}
