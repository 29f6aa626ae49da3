package contentstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-chat/internal/domain/language"
)

func TestHTTPClientListCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tenants/acme/categories", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"categories":[
			{"id":1,"name":"Faturamento","keywords":["fatura","boleto"]},
			{"id":999,"name":"Feedback","keywords":["não gostei"],"feedbackLanguage":"pt"}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	categories, err := client.ListCategories(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, categories, 2)
	require.Equal(t, int64(1), categories[0].ID)
	require.Equal(t, []string{"fatura", "boleto"}, categories[0].Keywords)
	require.Equal(t, language.Portuguese, categories[1].FeedbackFor)
}

func TestHTTPClientListEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tenants/acme/categories/1/faqs", r.URL.Path)
		w.Write([]byte(`{"faqs":[
			{"question":"Como emitir segunda via?","answer":"Acesse o portal.","language":"pt","embedding":[0.1,0.2]}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	entries, err := client.ListEntries(context.Background(), "acme", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Como emitir segunda via?", entries[0].Question)
	require.Equal(t, []float32{0.1, 0.2}, entries[0].Embedding)
}

func TestHTTPClientTenantProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tenants/acme", r.URL.Path)
		w.Write([]byte(`{
			"greetingMessage":{"pt":"Oi!","en":"Hello!"},
			"noAnswerMessage":{"pt":"Não sei.","en":""}
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	profile, err := client.TenantProfile(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, "Oi!", profile.Greeting[language.Portuguese])
	require.Equal(t, "Hello!", profile.Greeting[language.English])
	require.Equal(t, "Não sei.", profile.NoAnswer[language.Portuguese])
	_, hasEmptyEN := profile.NoAnswer[language.English]
	require.False(t, hasEmptyEN, "blank texts are dropped")
}

func TestHTTPClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tenant not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	_, err := client.ListCategories(context.Background(), "ghost")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=404")
}
