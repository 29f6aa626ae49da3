package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yanqian/faq-chat/internal/domain/knowledge"
	"github.com/yanqian/faq-chat/internal/domain/language"
	"github.com/yanqian/faq-chat/internal/infra/contentstore"
	apperrors "github.com/yanqian/faq-chat/pkg/errors"
)

const (
	questionInvoice  = "Como emitir segunda via da fatura?"
	questionBoleto   = "Como emitir a segunda via do boleto da fatura?"
	questionDelivery = "Como acompanhar a entrega do pedido?"

	answerInvoice  = "Acesse o portal e clique em segunda via."
	answerBoleto   = "No app, toque em boletos."
	answerDelivery = "Use o código de rastreio enviado por email."
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		src, ok := f.vectors[text]
		if !ok {
			src = []float32{0, 0, 0}
		}
		vec := make([]float32, len(src))
		copy(vec, src)
		out[i] = vec
	}
	return out, nil
}

type countingStore struct {
	*contentstore.MemoryStore
	builds atomic.Int64
}

func (s *countingStore) ListCategories(ctx context.Context, tenantID string) ([]knowledge.Category, error) {
	s.builds.Add(1)
	return s.MemoryStore.ListCategories(ctx, tenantID)
}

type stubSessions struct {
	mu sync.Mutex
	m  map[string]Session
}

func (s *stubSessions) Get(_ context.Context, id string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	return sess, ok, nil
}

func (s *stubSessions) Save(_ context.Context, id string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = sess
	return nil
}

func (s *stubSessions) snapshot(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[id]
}

func testMessages() map[language.Tag]MessageSet {
	return map[language.Tag]MessageSet{
		language.Portuguese: {
			Greeting:    "Olá! Como posso ajudar?",
			NoCategory:  "Não consegui identificar uma categoria para sua pergunta. Tente reformular.",
			Suggestions: "Não consegui identificar uma categoria exata. Talvez você queira saber sobre: %s.",
			NoAnswer:    "Desculpe, não tenho uma resposta para isso.",
			Exhausted:   "Lamento, não tenho mais respostas alternativas.",
			Fallback:    "Desculpe, não consegui processar sua solicitação no momento.",
		},
	}
}

func newServiceUnderTest(t *testing.T) (Service, *stubSessions, *countingStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	memory := contentstore.NewMemoryStore()
	memory.SeedTenant("acme",
		[]knowledge.Category{
			{ID: 1, Name: "Faturamento", Keywords: []string{"fatura", "boleto"}},
			{ID: 2, Name: "Entregas", Keywords: []string{"entrega", "rastreio"}},
			{ID: 999, Name: "Feedback", Keywords: []string{"não gostei", "resposta errada"}},
		},
		map[int64][]knowledge.Entry{
			1: {
				{Question: questionInvoice, Answer: answerInvoice, Language: "pt"},
				{Question: questionBoleto, Answer: answerBoleto, Language: "pt"},
			},
			2: {
				{Question: questionDelivery, Answer: answerDelivery, Language: "pt"},
			},
		},
		knowledge.TenantProfile{
			Greeting: map[language.Tag]string{language.Portuguese: "Olá! Posso ajudar com faturas."},
		},
	)
	store := &countingStore{MemoryStore: memory}

	emb := &fakeEmbedder{vectors: map[string][]float32{
		questionInvoice:  {1, 0, 0},
		questionBoleto:   {0, 1, 0},
		questionDelivery: {0, 0, 1},
	}}

	cache := knowledge.NewCache(store, emb, knowledge.CacheConfig{}, logger)
	retriever := knowledge.NewRetriever(emb, knowledge.RetrieverConfig{}, logger)
	router := language.NewRouter(nil, language.RouterConfig{}, logger)
	sessions := &stubSessions{m: make(map[string]Session)}

	svc := NewService(Config{Messages: testMessages()}, cache, retriever, sessions, router, logger)
	return svc, sessions, store
}

func ask(t *testing.T, svc Service, message string) Response {
	t.Helper()
	resp, err := svc.Answer(context.Background(), Request{
		TenantID:  "acme",
		SessionID: "s1",
		Message:   message,
	})
	if err != nil {
		t.Fatalf("Answer(%q): %v", message, err)
	}
	return resp
}

func TestAnswerRejectsMalformedRequests(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)

	tests := []Request{
		{SessionID: "s1", Message: "oi"},
		{TenantID: "acme", Message: "oi"},
		{TenantID: "acme", SessionID: "s1", Message: "   "},
	}
	for _, req := range tests {
		if _, err := svc.Answer(context.Background(), req); !apperrors.IsCode(err, "invalid_input") {
			t.Fatalf("Answer(%+v) error = %v, want invalid_input", req, err)
		}
	}
}

func TestAnswerGreetingUsesTenantOverride(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)

	resp := ask(t, svc, "olá")
	if resp.Text != "Olá! Posso ajudar com faturas." {
		t.Fatalf("greeting = %q", resp.Text)
	}
	if resp.Language != language.Portuguese {
		t.Fatalf("greeting language = %q", resp.Language)
	}
}

func TestAnswerReturnsBestCandidate(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)

	resp := ask(t, svc, questionInvoice)
	if resp.Text != answerInvoice {
		t.Fatalf("answer = %q, want %q", resp.Text, answerInvoice)
	}
	if resp.SessionID != "s1" {
		t.Fatalf("session id = %q", resp.SessionID)
	}

	// Same question in a fresh state yields the same answer.
	if again := ask(t, svc, questionInvoice); again.Text != resp.Text {
		t.Fatalf("retrieval not deterministic: %q vs %q", again.Text, resp.Text)
	}
}

func TestAnswerMergesCategoriesByScore(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)

	resp := ask(t, svc, "Onde vejo o rastreio da minha fatura?")
	if resp.Text != answerInvoice {
		t.Fatalf("cross-category best = %q, want %q", resp.Text, answerInvoice)
	}
}

func TestAnswerClassificationMissSuggests(t *testing.T) {
	svc, sessions, _ := newServiceUnderTest(t)

	resp := ask(t, svc, "algo completamente diferente")
	if !strings.HasPrefix(resp.Text, "Não consegui identificar uma categoria exata") {
		t.Fatalf("miss text = %q", resp.Text)
	}
	if len(resp.Suggestions) == 0 || resp.Suggestions[0] != "Faturamento" {
		t.Fatalf("suggestions = %v", resp.Suggestions)
	}
	if sess := sessions.snapshot("s1"); len(sess.Candidates) != 0 {
		t.Fatalf("classification miss must not leave candidates: %+v", sess)
	}
}

func TestNegativeFeedbackPaginatesEscalatesAndExhausts(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)

	if resp := ask(t, svc, questionInvoice); resp.Text != answerInvoice {
		t.Fatalf("turn 1 = %q", resp.Text)
	}
	// First rejection pages to the runner-up.
	if resp := ask(t, svc, "não gostei"); resp.Text != answerBoleto {
		t.Fatalf("turn 2 = %q, want %q", resp.Text, answerBoleto)
	}
	// A greeting in between must not disturb pagination state.
	if resp := ask(t, svc, "olá"); resp.Text != "Olá! Posso ajudar com faturas." {
		t.Fatalf("greeting turn = %q", resp.Text)
	}
	// Second rejection exhausts the lexical list and escalates to vectors.
	if resp := ask(t, svc, "não gostei"); resp.Text != answerInvoice {
		t.Fatalf("turn 3 = %q, want vector escalation to %q", resp.Text, answerInvoice)
	}
	// Vector results rejected too: terminal.
	exhausted := "Lamento, não tenho mais respostas alternativas."
	if resp := ask(t, svc, "não gostei"); resp.Text != exhausted {
		t.Fatalf("turn 4 = %q, want %q", resp.Text, exhausted)
	}
	// Terminal state is stable under further rejections.
	if resp := ask(t, svc, "resposta errada"); resp.Text != exhausted {
		t.Fatalf("turn 5 = %q, want %q", resp.Text, exhausted)
	}
}

func TestNewQuestionResetsFeedbackStreak(t *testing.T) {
	svc, sessions, _ := newServiceUnderTest(t)

	ask(t, svc, questionInvoice)
	ask(t, svc, "não gostei")
	if sess := sessions.snapshot("s1"); sess.NegativeStreak != 1 {
		t.Fatalf("streak after rejection = %d, want 1", sess.NegativeStreak)
	}

	if resp := ask(t, svc, questionDelivery); resp.Text != answerDelivery {
		t.Fatalf("new question = %q, want %q", resp.Text, answerDelivery)
	}
	sess := sessions.snapshot("s1")
	if sess.NegativeStreak != 0 {
		t.Fatalf("streak after new question = %d, want 0", sess.NegativeStreak)
	}
	if sess.LastQuestion != questionDelivery {
		t.Fatalf("last question = %q", sess.LastQuestion)
	}
}

func TestForceReloadRebuildsKnowledgeBase(t *testing.T) {
	svc, _, store := newServiceUnderTest(t)

	ask(t, svc, questionInvoice)
	if got := store.builds.Load(); got != 1 {
		t.Fatalf("builds = %d, want 1", got)
	}

	resp, err := svc.Answer(context.Background(), Request{
		TenantID:    "acme",
		SessionID:   "s1",
		Message:     questionInvoice,
		ForceReload: true,
	})
	if err != nil {
		t.Fatalf("Answer with reload: %v", err)
	}
	if resp.Text != answerInvoice {
		t.Fatalf("answer after reload = %q", resp.Text)
	}
	if got := store.builds.Load(); got != 2 {
		t.Fatalf("builds = %d, want 2", got)
	}
}

func TestKnowledgeFailureFallsBackGracefully(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)

	resp, err := svc.Answer(context.Background(), Request{
		TenantID:  "ghost",
		SessionID: "s1",
		Message:   questionInvoice,
	})
	if err != nil {
		t.Fatalf("collaborator failure must not error: %v", err)
	}
	if resp.Text != "Desculpe, não consegui processar sua solicitação no momento." {
		t.Fatalf("fallback = %q", resp.Text)
	}
}
