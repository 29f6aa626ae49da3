package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/faq-chat/internal/domain/knowledge"
	"github.com/yanqian/faq-chat/internal/domain/language"
)

const defaultTimeout = 10 * time.Second

// HTTPClient fetches tenant categories, FAQ entries and profile texts from
// the admin backend's REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient builds an API client for the admin backend.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListCategories retrieves the tenant's categories in authoring order.
func (c *HTTPClient) ListCategories(ctx context.Context, tenantID string) ([]knowledge.Category, error) {
	var payload struct {
		Categories []categoryDTO `json:"categories"`
	}
	path := fmt.Sprintf("/api/tenants/%s/categories", url.PathEscape(tenantID))
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}

	categories := make([]knowledge.Category, 0, len(payload.Categories))
	for _, dto := range payload.Categories {
		categories = append(categories, knowledge.Category{
			ID:          dto.ID,
			Name:        dto.Name,
			Keywords:    dto.Keywords,
			FeedbackFor: language.Tag(dto.FeedbackLanguage),
		})
	}
	return categories, nil
}

// ListEntries retrieves the FAQ entries of one category.
func (c *HTTPClient) ListEntries(ctx context.Context, tenantID string, categoryID int64) ([]knowledge.Entry, error) {
	var payload struct {
		FAQs []entryDTO `json:"faqs"`
	}
	path := fmt.Sprintf("/api/tenants/%s/categories/%d/faqs", url.PathEscape(tenantID), categoryID)
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}

	entries := make([]knowledge.Entry, 0, len(payload.FAQs))
	for _, dto := range payload.FAQs {
		entries = append(entries, knowledge.Entry{
			Question:  dto.Question,
			Answer:    dto.Answer,
			Language:  dto.Language,
			Embedding: dto.Embedding,
		})
	}
	return entries, nil
}

// TenantProfile retrieves the tenant's authored conversational texts.
func (c *HTTPClient) TenantProfile(ctx context.Context, tenantID string) (knowledge.TenantProfile, error) {
	var payload struct {
		GreetingMessage map[string]string `json:"greetingMessage"`
		NoAnswerMessage map[string]string `json:"noAnswerMessage"`
	}
	path := fmt.Sprintf("/api/tenants/%s", url.PathEscape(tenantID))
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return knowledge.TenantProfile{}, err
	}

	return knowledge.TenantProfile{
		Greeting: toTagMap(payload.GreetingMessage),
		NoAnswer: toTagMap(payload.NoAnswerMessage),
	}, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build content store request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("content store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("content store error: status=%d path=%s body=%s", resp.StatusCode, path, string(payload))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode content store response: %w", err)
	}
	return nil
}

type categoryDTO struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Keywords         []string `json:"keywords"`
	FeedbackLanguage string   `json:"feedbackLanguage,omitempty"`
}

type entryDTO struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Language  string    `json:"language"`
	Embedding []float32 `json:"embedding,omitempty"`
}

func toTagMap(raw map[string]string) map[language.Tag]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[language.Tag]string, len(raw))
	for lang, text := range raw {
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		out[language.ParseTag(lang)] = text
	}
	return out
}

var _ knowledge.ContentStore = (*HTTPClient)(nil)
