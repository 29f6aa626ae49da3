package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faq-chat/internal/bootstrap"
	"github.com/yanqian/faq-chat/internal/domain/chat"
	"github.com/yanqian/faq-chat/internal/domain/knowledge"
	"github.com/yanqian/faq-chat/internal/domain/language"
	"github.com/yanqian/faq-chat/internal/infra/config"
	"github.com/yanqian/faq-chat/internal/infra/contentstore"
	"github.com/yanqian/faq-chat/internal/infra/embedder"
	"github.com/yanqian/faq-chat/internal/infra/langdetect"
	"github.com/yanqian/faq-chat/internal/infra/llm/chatgpt"
	"github.com/yanqian/faq-chat/internal/infra/sessionstore"
)

func provideLanguageRouter(cfg *config.Config, logger *slog.Logger) *language.Router {
	return language.NewRouter(langdetect.NewLinguaDetector(), language.RouterConfig{
		Default:             language.Tag(cfg.Language.Default),
		MinDetectLength:     cfg.Language.MinDetectLength,
		SecondaryConfidence: cfg.Language.SecondaryConfidence,
	}, logger)
}

func provideContentStore(cfg *config.Config, logger *slog.Logger) knowledge.ContentStore {
	fallback := contentstore.NewHTTPClient(cfg.Knowledge.ContentStore.BaseURL, cfg.Knowledge.ContentStore.Timeout)
	dsn := strings.TrimSpace(cfg.Knowledge.Postgres.DSN)
	if dsn == "" {
		logger.Info("knowledge postgres dsn not set, using http content store", "base_url", cfg.Knowledge.ContentStore.BaseURL)
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using http content store", "error", err)
		return fallback
	}
	if cfg.Knowledge.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Knowledge.Postgres.MaxConns
	}
	if cfg.Knowledge.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Knowledge.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using http content store", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using http content store", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres content store enabled")
	return contentstore.NewPostgresStore(pool)
}

func provideEmbedder(cfg *config.Config, logger *slog.Logger) (knowledge.Embedder, error) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Warn("llm api key not set, using deterministic embedder")
		return embedder.NewDeterministicEmbedder(0), nil
	}
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		return nil, err
	}
	return embedder.NewChatGPTEmbedder(client, cfg.LLM.EmbeddingModel, cfg.LLM.MaxEmbeddingTokens, logger)
}

func provideKnowledgeCache(cfg *config.Config, store knowledge.ContentStore, emb knowledge.Embedder, logger *slog.Logger) *knowledge.Cache {
	return knowledge.NewCache(store, emb, knowledge.CacheConfig{
		MaxTenants:   cfg.Knowledge.Cache.MaxTenants,
		TTL:          cfg.Knowledge.Cache.TTL,
		BuildTimeout: cfg.Knowledge.Cache.BuildTimeout,
	}, logger)
}

func provideRetriever(cfg *config.Config, emb knowledge.Embedder, logger *slog.Logger) *knowledge.Retriever {
	return knowledge.NewRetriever(emb, knowledge.RetrieverConfig{
		LexicalFloor: cfg.Knowledge.Retriever.LexicalFloor,
		VectorFloor:  cfg.Knowledge.Retriever.VectorFloor,
		MaxDistance:  cfg.Knowledge.Retriever.MaxDistance,
		TopK:         cfg.Knowledge.Retriever.TopK,
	}, logger)
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) chat.SessionStore {
	if cfg.Chat.Sessions.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg.Chat.Sessions.Valkey.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory sessions", "error", err)
			return sessionstore.NewMemoryStore(cfg.Chat.Sessions.Capacity, cfg.Chat.Sessions.TTL)
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory sessions", "error", err)
			return sessionstore.NewMemoryStore(cfg.Chat.Sessions.Capacity, cfg.Chat.Sessions.TTL)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory sessions", "error", err)
			client.Close()
		} else {
			logger.Info("valkey session store enabled", "addr", cfg.Chat.Sessions.Valkey.Addr)
			return sessionstore.NewValkeyStore(client, "chat", cfg.Chat.Sessions.TTL)
		}
	}
	return sessionstore.NewMemoryStore(cfg.Chat.Sessions.Capacity, cfg.Chat.Sessions.TTL)
}

func provideChatConfig(cfg *config.Config) chat.Config {
	messages := make(map[language.Tag]chat.MessageSet, len(cfg.Chat.Messages))
	for lang, set := range cfg.Chat.Messages {
		messages[language.Tag(lang)] = chat.MessageSet{
			Greeting:    set.Greeting,
			NoCategory:  set.NoCategory,
			Suggestions: set.Suggestions,
			NoAnswer:    set.NoAnswer,
			Exhausted:   set.Exhausted,
			Fallback:    set.Fallback,
		}
	}
	return chat.Config{
		EscalationThreshold: cfg.Chat.EscalationThreshold,
		MaxSuggestions:      cfg.Chat.MaxSuggestions,
		Messages:            messages,
	}
}

func provideShutdownHooks(cache *knowledge.Cache, sessions chat.SessionStore) []bootstrap.Hook {
	hooks := []bootstrap.Hook{cache.Purge}
	if closer, ok := sessions.(interface{ Close() }); ok {
		hooks = append(hooks, closer.Close)
	}
	return hooks
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
