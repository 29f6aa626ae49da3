package contentstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/faq-chat/internal/domain/knowledge"
	"github.com/yanqian/faq-chat/internal/domain/language"
)

// PostgresStore reads tenant knowledge directly from the relational schema
// the admin backend writes to. It also persists computed question embeddings
// so later cache builds can skip the embedding API.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListCategories returns the tenant's categories in authoring order.
func (s *PostgresStore) ListCategories(ctx context.Context, tenantID string) ([]knowledge.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, keywords, feedback_language
		FROM categories
		WHERE tenant_id = $1
		ORDER BY position, id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []knowledge.Category
	for rows.Next() {
		var (
			cat      knowledge.Category
			feedback sql.NullString
		)
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Keywords, &feedback); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if feedback.Valid {
			cat.FeedbackFor = language.Tag(feedback.String)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// ListEntries returns the FAQ entries of one category, embeddings included
// where previously persisted.
func (s *PostgresStore) ListEntries(ctx context.Context, tenantID string, categoryID int64) ([]knowledge.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT question, answer, language, embedding::text
		FROM faqs
		WHERE tenant_id = $1 AND category_id = $2
		ORDER BY id
	`, tenantID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []knowledge.Entry
	for rows.Next() {
		var (
			entry knowledge.Entry
			lang  sql.NullString
			emb   sql.NullString
		)
		if err := rows.Scan(&entry.Question, &entry.Answer, &lang, &emb); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Language = lang.String
		if emb.Valid && emb.String != "" {
			var vec pgvector.Vector
			if err := vec.Scan(emb.String); err != nil {
				return nil, fmt.Errorf("scan embedding: %w", err)
			}
			entry.Embedding = vec.Slice()
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// TenantProfile returns the tenant's authored conversational texts.
func (s *PostgresStore) TenantProfile(ctx context.Context, tenantID string) (knowledge.TenantProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT language, greeting_message, no_answer_message
		FROM tenant_profiles
		WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return knowledge.TenantProfile{}, fmt.Errorf("load tenant profile: %w", err)
	}
	defer rows.Close()

	profile := knowledge.TenantProfile{
		Greeting: make(map[language.Tag]string),
		NoAnswer: make(map[language.Tag]string),
	}
	for rows.Next() {
		var lang string
		var greeting, noAnswer sql.NullString
		if err := rows.Scan(&lang, &greeting, &noAnswer); err != nil {
			return knowledge.TenantProfile{}, fmt.Errorf("scan tenant profile: %w", err)
		}
		tag := language.ParseTag(lang)
		if greeting.Valid && greeting.String != "" {
			profile.Greeting[tag] = greeting.String
		}
		if noAnswer.Valid && noAnswer.String != "" {
			profile.NoAnswer[tag] = noAnswer.String
		}
	}
	return profile, rows.Err()
}

// SaveEmbeddings writes computed question embeddings back so the next cache
// build reuses them instead of calling the embedding API again.
func (s *PostgresStore) SaveEmbeddings(ctx context.Context, tenantID string, categoryID int64, questions []string, vectors [][]float32) error {
	if len(questions) != len(vectors) {
		return fmt.Errorf("save embeddings: %d questions but %d vectors", len(questions), len(vectors))
	}
	for i, question := range questions {
		_, err := s.pool.Exec(ctx, `
			UPDATE faqs
			SET embedding = $1
			WHERE tenant_id = $2 AND category_id = $3 AND question = $4
		`, pgvector.NewVector(vectors[i]), tenantID, categoryID, question)
		if err != nil {
			return fmt.Errorf("save embedding: %w", err)
		}
	}
	return nil
}

var (
	_ knowledge.ContentStore    = (*PostgresStore)(nil)
	_ knowledge.EmbeddingWriter = (*PostgresStore)(nil)
)
