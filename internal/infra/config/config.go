package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Language  LanguageConfig  `yaml:"language"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Chat      ChatConfig      `yaml:"chat"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig contains settings for the OpenAI-compatible embeddings API.
type LLMConfig struct {
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseUrl"`
	EmbeddingModel string `yaml:"embeddingModel"`
	// MaxEmbeddingTokens truncates oversized inputs before embedding.
	MaxEmbeddingTokens int `yaml:"maxEmbeddingTokens"`
}

// LanguageConfig tunes utterance language routing.
type LanguageConfig struct {
	Default string `yaml:"default"`
	// MinDetectLength is the shortest input (in runes) worth detecting.
	MinDetectLength int `yaml:"minDetectLength"`
	// SecondaryConfidence gates acceptance of a non-default detection.
	SecondaryConfidence float64 `yaml:"secondaryConfidence"`
}

// KnowledgeConfig controls the knowledge base cache and retrieval.
type KnowledgeConfig struct {
	ContentStore ContentStoreConfig `yaml:"contentStore"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Cache        CacheConfig        `yaml:"cache"`
	Retriever    RetrieverConfig    `yaml:"retriever"`
}

// ContentStoreConfig points at the admin backend serving categories and FAQs.
type ContentStoreConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// PostgresConfig contains DSN and pooling settings for the relational
// content store. When a DSN is set it takes precedence over the HTTP store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// CacheConfig bounds tenant knowledge base generations.
type CacheConfig struct {
	MaxTenants   int           `yaml:"maxTenants"`
	TTL          time.Duration `yaml:"ttl"`
	BuildTimeout time.Duration `yaml:"buildTimeout"`
}

// RetrieverConfig exposes the similarity tunables.
type RetrieverConfig struct {
	LexicalFloor float64 `yaml:"lexicalFloor"`
	VectorFloor  float64 `yaml:"vectorFloor"`
	MaxDistance  float64 `yaml:"maxDistance"`
	TopK         int     `yaml:"topK"`
}

// ChatConfig controls the conversation engine.
type ChatConfig struct {
	EscalationThreshold int                   `yaml:"escalationThreshold"`
	MaxSuggestions      int                   `yaml:"maxSuggestions"`
	Sessions            SessionConfig         `yaml:"sessions"`
	Messages            map[string]MessageSet `yaml:"messages"`
}

// SessionConfig selects and bounds the session store.
type SessionConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
	Valkey   ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the shared session store.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MessageSet holds the user-facing texts for one language.
type MessageSet struct {
	Greeting    string `yaml:"greeting"`
	NoCategory  string `yaml:"noCategory"`
	Suggestions string `yaml:"suggestions"`
	NoAnswer    string `yaml:"noAnswer"`
	Exhausted   string `yaml:"exhausted"`
	Fallback    string `yaml:"fallback"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_MAX_EMBEDDING_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxEmbeddingTokens = parsed
		}
	}
	if v := os.Getenv("LANGUAGE_DEFAULT"); v != "" {
		cfg.Language.Default = v
	}
	if v := os.Getenv("LANGUAGE_MIN_DETECT_LENGTH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Language.MinDetectLength = parsed
		}
	}
	if v := os.Getenv("LANGUAGE_SECONDARY_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Language.SecondaryConfidence = parsed
		}
	}
	if v := os.Getenv("CONTENT_STORE_BASE_URL"); v != "" {
		cfg.Knowledge.ContentStore.BaseURL = v
	}
	if v := os.Getenv("CONTENT_STORE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Knowledge.ContentStore.Timeout = parsed
		}
	}
	if v := os.Getenv("KNOWLEDGE_POSTGRES_DSN"); v != "" {
		cfg.Knowledge.Postgres.DSN = v
	}
	if v := os.Getenv("KNOWLEDGE_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Knowledge.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("KNOWLEDGE_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Knowledge.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("KNOWLEDGE_CACHE_MAX_TENANTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Knowledge.Cache.MaxTenants = parsed
		}
	}
	if v := os.Getenv("KNOWLEDGE_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Knowledge.Cache.TTL = parsed
		}
	}
	if v := os.Getenv("KNOWLEDGE_CACHE_BUILD_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Knowledge.Cache.BuildTimeout = parsed
		}
	}
	if v := os.Getenv("RETRIEVER_LEXICAL_FLOOR"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Knowledge.Retriever.LexicalFloor = parsed
		}
	}
	if v := os.Getenv("RETRIEVER_VECTOR_FLOOR"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Knowledge.Retriever.VectorFloor = parsed
		}
	}
	if v := os.Getenv("RETRIEVER_MAX_DISTANCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Knowledge.Retriever.MaxDistance = parsed
		}
	}
	if v := os.Getenv("RETRIEVER_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Knowledge.Retriever.TopK = parsed
		}
	}
	if v := os.Getenv("CHAT_ESCALATION_THRESHOLD"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Chat.EscalationThreshold = parsed
		}
	}
	if v := os.Getenv("CHAT_MAX_SUGGESTIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Chat.MaxSuggestions = parsed
		}
	}
	if v := os.Getenv("SESSIONS_CAPACITY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Chat.Sessions.Capacity = parsed
		}
	}
	if v := os.Getenv("SESSIONS_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Chat.Sessions.TTL = parsed
		}
	}
	if v := os.Getenv("SESSIONS_VALKEY_ENABLED"); v != "" {
		cfg.Chat.Sessions.Valkey.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SESSIONS_VALKEY_ADDR"); v != "" {
		cfg.Chat.Sessions.Valkey.Addr = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
		},
		LLM: LLMConfig{
			EmbeddingModel:     "text-embedding-3-small",
			MaxEmbeddingTokens: 8000,
		},
		Language: LanguageConfig{
			Default:             "pt",
			MinDetectLength:     10,
			SecondaryConfidence: 0.90,
		},
		Knowledge: KnowledgeConfig{
			ContentStore: ContentStoreConfig{
				BaseURL: "http://localhost:3004",
				Timeout: 10 * time.Second,
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			Cache: CacheConfig{
				MaxTenants:   128,
				TTL:          12 * time.Hour,
				BuildTimeout: 60 * time.Second,
			},
			Retriever: RetrieverConfig{
				LexicalFloor: 0.3,
				VectorFloor:  0.6,
				MaxDistance:  10.0,
				TopK:         5,
			},
		},
		Chat: ChatConfig{
			EscalationThreshold: 2,
			MaxSuggestions:      3,
			Sessions: SessionConfig{
				Capacity: 10000,
				TTL:      2 * time.Hour,
			},
			Messages: map[string]MessageSet{
				"pt": {
					Greeting:    "Olá! Como posso ajudar?",
					NoCategory:  "Não consegui identificar uma categoria para sua pergunta. Tente reformular.",
					Suggestions: "Não consegui identificar uma categoria exata. Talvez você queira saber sobre: %s.",
					NoAnswer:    "Desculpe, não tenho uma resposta para isso.",
					Exhausted:   "Lamento, não tenho mais respostas alternativas.",
					Fallback:    "Desculpe, não consegui processar sua solicitação no momento.",
				},
				"en": {
					Greeting:    "Hello! How can I help you?",
					NoCategory:  "Couldn't identify a category for your question. Please rephrase.",
					Suggestions: "Couldn't detect an exact category. Maybe you meant: %s.",
					NoAnswer:    "Sorry, I don't have an answer for that.",
					Exhausted:   "Sorry, no more alternative answers.",
					Fallback:    "Sorry, I couldn't process your request right now.",
				},
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	switch c.Language.Default {
	case "pt", "en":
	default:
		return fmt.Errorf("language.default must be pt or en, got %q", c.Language.Default)
	}
	if c.Language.SecondaryConfidence <= 0 || c.Language.SecondaryConfidence > 1 {
		return errors.New("language.secondaryConfidence must be in (0, 1]")
	}
	if c.Knowledge.ContentStore.BaseURL == "" && strings.TrimSpace(c.Knowledge.Postgres.DSN) == "" {
		return errors.New("knowledge requires a content store: set contentStore.baseUrl or postgres.dsn")
	}
	if c.Knowledge.Cache.MaxTenants <= 0 {
		return errors.New("knowledge.cache.maxTenants must be positive")
	}
	if c.Knowledge.Retriever.LexicalFloor < 0 || c.Knowledge.Retriever.LexicalFloor > 1 {
		return errors.New("knowledge.retriever.lexicalFloor must be in [0, 1]")
	}
	if c.Knowledge.Retriever.VectorFloor < 0 || c.Knowledge.Retriever.VectorFloor > 1 {
		return errors.New("knowledge.retriever.vectorFloor must be in [0, 1]")
	}
	if c.Knowledge.Retriever.TopK <= 0 {
		return errors.New("knowledge.retriever.topK must be positive")
	}
	if c.Chat.EscalationThreshold <= 0 {
		return errors.New("chat.escalationThreshold must be positive")
	}
	if c.Chat.Sessions.Capacity <= 0 {
		return errors.New("chat.sessions.capacity must be positive")
	}
	if c.Chat.Sessions.Valkey.Enabled && strings.TrimSpace(c.Chat.Sessions.Valkey.Addr) == "" {
		return errors.New("chat.sessions.valkey.addr cannot be empty when valkey is enabled")
	}
	for lang := range c.Chat.Messages {
		if lang != "pt" && lang != "en" {
			return fmt.Errorf("chat.messages contains unsupported language %q", lang)
		}
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
