package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/faq-chat/internal/domain/knowledge"
	"github.com/yanqian/faq-chat/internal/infra/llm/chatgpt"
)

const fallbackEncoding = "cl100k_base"

// ChatGPTEmbedder calls an OpenAI-compatible embeddings API. Inputs longer
// than the configured token budget are truncated before sending.
type ChatGPTEmbedder struct {
	client    *chatgpt.Client
	model     string
	maxTokens int
	encoding  *tiktoken.Tiktoken
	logger    *slog.Logger
}

// NewChatGPTEmbedder constructs an embedder backed by the ChatGPT client.
func NewChatGPTEmbedder(client *chatgpt.Client, model string, maxTokens int, logger *slog.Logger) (*ChatGPTEmbedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	model = strings.TrimSpace(model)

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load token encoding: %w", err)
		}
	}

	return &ChatGPTEmbedder{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		encoding:  encoding,
		logger:    logger.With("component", "embedder.chatgpt"),
	}, nil
}

// Embed requests embeddings for the given texts, preserving input order.
func (e *ChatGPTEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, text := range texts {
		input[i] = e.truncate(text)
	}

	resp, err := e.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{
		Model: e.model,
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("embedding result count mismatch: expected %d, got %d", len(input), len(resp.Data))
	}
	if !resp.Usage.IsZero() {
		e.logger.Debug("embedding tokens used", "prompt", resp.Usage.PromptTokens, "total", resp.Usage.TotalTokens)
	}

	out := make([][]float32, len(input))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("embedding result index out of range: %d", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		copy(vec, item.Embedding)
		out[item.Index] = vec
	}
	return out, nil
}

func (e *ChatGPTEmbedder) truncate(text string) string {
	if e.maxTokens <= 0 {
		return text
	}
	tokens := e.encoding.Encode(text, nil, nil)
	if len(tokens) <= e.maxTokens {
		return text
	}
	e.logger.Warn("truncating oversized embedding input", "tokens", len(tokens), "limit", e.maxTokens)
	return e.encoding.Decode(tokens[:e.maxTokens])
}

var _ knowledge.Embedder = (*ChatGPTEmbedder)(nil)
