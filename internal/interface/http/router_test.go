package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-chat/internal/domain/chat"
	"github.com/yanqian/faq-chat/internal/domain/knowledge"
	"github.com/yanqian/faq-chat/internal/domain/language"
	"github.com/yanqian/faq-chat/internal/infra/config"
	"github.com/yanqian/faq-chat/internal/infra/contentstore"
	"github.com/yanqian/faq-chat/internal/infra/embedder"
	apperrors "github.com/yanqian/faq-chat/pkg/errors"
)

func TestRouter_ChatSuccess(t *testing.T) {
	svc := &stubChatService{
		answerFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			require.Equal(t, "acme", req.TenantID)
			require.Equal(t, "s1", req.SessionID)
			require.Equal(t, "como pago meu boleto?", req.Message)
			return chat.Response{
				Text:      "Use o código de barras.",
				Language:  language.Portuguese,
				SessionID: req.SessionID,
			}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/chat",
		`{"tenantId":"acme","sessionId":"s1","message":"como pago meu boleto?"}`,
		newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got chat.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "Use o código de barras.", got.Text)
	require.Equal(t, "s1", got.SessionID)
	require.Equal(t, language.Portuguese, got.Language)
}

func TestRouter_ChatGeneratesSessionID(t *testing.T) {
	svc := &stubChatService{
		answerFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			require.NotEmpty(t, req.SessionID)
			return chat.Response{Text: "ok", SessionID: req.SessionID}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/chat",
		`{"tenantId":"acme","message":"oi"}`,
		newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got chat.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Len(t, got.SessionID, 36)
}

func TestRouter_ChatMissingFields(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/api/v1/chat",
		`{"sessionId":"s1"}`,
		newRouterUnderTest(t, &stubChatService{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
}

func TestRouter_ChatInvalidInput(t *testing.T) {
	svc := &stubChatService{
		answerFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			return chat.Response{}, apperrors.Wrap("invalid_input", "message cannot be empty", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/chat",
		`{"tenantId":"acme","message":"   "}`,
		newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "message cannot be empty")
}

func TestRouter_ChatInternalError(t *testing.T) {
	svc := &stubChatService{
		answerFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			return chat.Response{}, apperrors.Wrap("session_store_error", "store down", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/chat",
		`{"tenantId":"acme","message":"oi"}`,
		newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "chat_failed", errBody["error"]["code"])
}

func TestRouter_ReloadTenant(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/api/v1/tenants/acme/reload", "",
		newRouterUnderTest(t, &stubChatService{}))
	require.Equal(t, http.StatusAccepted, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "acme", body["tenantId"])
	require.Equal(t, "reload_scheduled", body["status"])
}

func TestRouter_Health(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/healthz", "",
		newRouterUnderTest(t, &stubChatService{}))
	require.Equal(t, http.StatusOK, recorder.Code)
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, svc chat.Service) *http.Server {
	t.Helper()
	logger := newTestLogger()
	cache := knowledge.NewCache(contentstore.NewMemoryStore(), embedder.NewDeterministicEmbedder(0), knowledge.CacheConfig{}, logger)
	handler := NewHandler(svc, cache, logger)
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	return NewRouter(cfg, handler)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubChatService struct {
	answerFn func(ctx context.Context, req chat.Request) (chat.Response, error)
}

func (s *stubChatService) Answer(ctx context.Context, req chat.Request) (chat.Response, error) {
	if s.answerFn != nil {
		return s.answerFn(ctx, req)
	}
	return chat.Response{}, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
