package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/faq-chat/internal/domain/knowledge"
	"github.com/yanqian/faq-chat/internal/domain/language"
	apperrors "github.com/yanqian/faq-chat/pkg/errors"
)

type service struct {
	cfg       Config
	cache     *knowledge.Cache
	retriever *knowledge.Retriever
	sessions  SessionStore
	router    *language.Router
	logger    *slog.Logger
	locks     *keyedMutex
}

// NewService wires up the conversation engine.
func NewService(cfg Config, cache *knowledge.Cache, retriever *knowledge.Retriever, sessions SessionStore, router *language.Router, logger *slog.Logger) Service {
	if cfg.EscalationThreshold <= 0 {
		cfg.EscalationThreshold = 2
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 3
	}
	return &service{
		cfg:       cfg,
		cache:     cache,
		retriever: retriever,
		sessions:  sessions,
		router:    router,
		logger:    logger.With("component", "chat.service"),
		locks:     newKeyedMutex(),
	}
}

// Answer runs one conversation turn: language routing, knowledge base
// access, the negative-feedback state machine, and candidate retrieval.
// Collaborator failures downgrade to a user-facing fallback text; only
// malformed requests return an error.
func (s *service) Answer(ctx context.Context, req Request) (Response, error) {
	message := strings.TrimSpace(req.Message)
	tenantID := strings.TrimSpace(req.TenantID)
	sessionID := strings.TrimSpace(req.SessionID)
	switch {
	case tenantID == "":
		return Response{}, apperrors.Wrap("invalid_input", "tenantId cannot be empty", nil)
	case sessionID == "":
		return Response{}, apperrors.Wrap("invalid_input", "sessionId cannot be empty", nil)
	case message == "":
		return Response{}, apperrors.Wrap("invalid_input", "message cannot be empty", nil)
	}

	tag := s.router.Route(ctx, message)

	if req.ForceReload {
		s.cache.Invalidate(tenantID)
	}

	gen, err := s.cache.Get(ctx, tenantID)
	if err != nil {
		s.logger.Error("knowledge base unavailable", "tenant", tenantID, "error", err)
		return Response{Text: s.cfg.messages(tag).Fallback, Language: tag, SessionID: sessionID}, nil
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, found, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("session load failed, starting fresh", "session", sessionID, "error", err)
		found = false
	}
	if !found {
		sess = Session{}
	}
	sess.Language = tag

	if s.router.IsGreeting(message, tag) {
		s.save(ctx, sessionID, sess)
		return s.respond(greetingText(gen, s.cfg, tag), tag, sessionID), nil
	}

	if gen.IsNegativeFeedback(message, tag) {
		resp := s.handleNegativeFeedback(ctx, gen, &sess, tag, sessionID)
		s.save(ctx, sessionID, sess)
		return resp, nil
	}

	// A genuinely new question clears the rejection streak.
	if language.NormalizeStrict(message) != language.NormalizeStrict(sess.LastQuestion) {
		sess.NegativeStreak = 0
	}
	sess.LastQuestion = message
	sess.Candidates = nil
	sess.Cursor = 0
	sess.Escalated = false

	categories := gen.DetectCategories(message)
	if len(categories) == 0 {
		sess.LastCategories = nil
		s.save(ctx, sessionID, sess)
		return s.classificationMiss(gen, message, tag, sessionID), nil
	}
	sess.LastCategories = categories

	candidates, err := s.retriever.Retrieve(ctx, knowledge.StrategyLexical, message, gen, categories, tag)
	if err != nil {
		s.logger.Error("candidate retrieval failed", "tenant", tenantID, "error", err)
		s.save(ctx, sessionID, sess)
		return s.respond(s.cfg.messages(tag).Fallback, tag, sessionID), nil
	}

	answers := knowledge.Rank(candidates)
	if len(answers) == 0 {
		s.save(ctx, sessionID, sess)
		return s.respond(noAnswerText(gen, s.cfg, tag), tag, sessionID), nil
	}

	sess.Candidates = answers
	sess.Cursor = 0
	s.save(ctx, sessionID, sess)
	return s.respond(answers[0], tag, sessionID), nil
}

// handleNegativeFeedback advances pagination, escalates to vector retrieval
// once the streak reaches the threshold, or reports exhaustion. The streak
// increments on every feedback turn.
func (s *service) handleNegativeFeedback(ctx context.Context, gen *knowledge.Generation, sess *Session, tag language.Tag, sessionID string) Response {
	sess.NegativeStreak++

	if sess.Cursor+1 < len(sess.Candidates) {
		sess.Cursor++
		return s.respond(sess.Candidates[sess.Cursor], tag, sessionID)
	}

	canEscalate := !sess.Escalated &&
		sess.NegativeStreak >= s.cfg.EscalationThreshold &&
		sess.LastQuestion != "" &&
		len(sess.LastCategories) > 0
	if canEscalate {
		candidates, err := s.retriever.Retrieve(ctx, knowledge.StrategyVector, sess.LastQuestion, gen, sess.LastCategories, tag)
		if err != nil {
			s.logger.Warn("vector escalation failed", "session", sessionID, "error", err)
		} else if answers := knowledge.Rank(candidates); len(answers) > 0 {
			sess.Candidates = answers
			sess.Cursor = 0
			sess.Escalated = true
			return s.respond(answers[0], tag, sessionID)
		}
	}

	return s.respond(s.cfg.messages(tag).Exhausted, tag, sessionID)
}

// classificationMiss answers an unroutable question, hinting at nearby
// categories when any resemble the input.
func (s *service) classificationMiss(gen *knowledge.Generation, message string, tag language.Tag, sessionID string) Response {
	set := s.cfg.messages(tag)
	suggestions := gen.SuggestCategories(message, s.cfg.MaxSuggestions)
	if len(suggestions) > 0 && set.Suggestions != "" {
		resp := s.respond(fmt.Sprintf(set.Suggestions, strings.Join(suggestions, ", ")), tag, sessionID)
		resp.Suggestions = suggestions
		return resp
	}
	return s.respond(set.NoCategory, tag, sessionID)
}

func (s *service) respond(text string, tag language.Tag, sessionID string) Response {
	return Response{Text: text, Language: tag, SessionID: sessionID}
}

func (s *service) save(ctx context.Context, sessionID string, sess Session) {
	if err := s.sessions.Save(ctx, sessionID, sess); err != nil {
		s.logger.Warn("session save failed", "session", sessionID, "error", err)
	}
}

func greetingText(gen *knowledge.Generation, cfg Config, tag language.Tag) string {
	if msg, ok := gen.Greeting(tag); ok {
		return msg
	}
	return cfg.messages(tag).Greeting
}

func noAnswerText(gen *knowledge.Generation, cfg Config, tag language.Tag) string {
	if msg, ok := gen.NoAnswer(tag); ok {
		return msg
	}
	return cfg.messages(tag).NoAnswer
}
