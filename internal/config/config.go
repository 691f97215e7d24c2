// Package config loads and validates application configuration from
// environment variables.
//
// Loading happens once at startup. Required values (the OpenAI API key) fail
// fast with an error; tunables use warn-and-default semantics through the
// pkg/config helpers.
package config

import (
	"fmt"
	"os"
	"time"

	"ragchat/pkg/config"
)

// Default values for tunables. Mirrors the service's historical defaults.
const (
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 1024

	DefaultSystemPrompt = "You are a helpful assistant. Answer using the provided context. " +
		"If the context contains no relevant information, say so and suggest asking a different question. " +
		"Do not invent facts."

	minAPIKeyLength = 10
)

// OpenAI holds settings for the generation collaborator.
type OpenAI struct {
	APIKey            string
	Model             string
	EmbeddingModel    string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Guard holds settings for the DDoS guard.
type Guard struct {
	Enabled            bool
	Window             time.Duration
	MaxRequests        int
	BlockDuration      time.Duration
	MaxBlockDuration   time.Duration
	ExponentialBackoff bool
	Whitelist          []string
	SweepInterval      time.Duration
}

// Cache holds settings for the response cache.
type Cache struct {
	Enabled    bool
	TTL        time.Duration
	MaxEntries int
}

// RAG holds settings for document retrieval.
type RAG struct {
	Enabled       bool
	DataDir       string
	PersistDir    string
	ChunkTokens   int
	ChunkOverlap  int
	TopK          int
	MinSimilarity float32
}

// Config is the complete application configuration.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string

	// APIKey, when non-empty, enables bearer-token authentication on the
	// cache administration endpoints.
	APIKey string

	// SystemPrompt is prepended to every generation request.
	SystemPrompt string

	OpenAI OpenAI
	Guard  Guard
	Cache  Cache
	RAG    RAG
}

// Load reads configuration from the environment and validates required
// values. It returns an error when a value without a safe default is missing
// or malformed.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:         config.GetEnvString("ADDR", ":8000"),
		APIKey:       os.Getenv("API_KEY"),
		SystemPrompt: config.GetEnvString("SYSTEM_PROMPT", DefaultSystemPrompt),
		OpenAI: OpenAI{
			APIKey:            os.Getenv("OPENAI_API_KEY"),
			Model:             config.GetEnvString("GPT_MODEL", DefaultModel),
			EmbeddingModel:    config.GetEnvString("EMBEDDING_MODEL", DefaultEmbeddingModel),
			Temperature:       config.GetEnvFloat32("TEMPERATURE", DefaultTemperature),
			MaxTokens:         config.GetEnvInt("MAX_TOKENS", DefaultMaxTokens),
			Timeout:           config.GetEnvDuration("OPENAI_TIMEOUT", 60*time.Second),
			RequestsPerSecond: float64(config.GetEnvFloat32("OPENAI_MAX_RPS", 5)),
		},
		Guard: Guard{
			Enabled:            config.GetEnvBool("RATELIMIT_ENABLED", true),
			Window:             config.GetEnvDuration("RATELIMIT_WINDOW", 1*time.Minute),
			MaxRequests:        config.GetEnvInt("RATELIMIT_MAX_REQUESTS", 100),
			BlockDuration:      config.GetEnvDuration("RATELIMIT_BLOCK_DURATION", 5*time.Minute),
			MaxBlockDuration:   config.GetEnvDuration("RATELIMIT_MAX_BLOCK_DURATION", 1*time.Hour),
			ExponentialBackoff: config.GetEnvBool("RATELIMIT_BACKOFF", true),
			Whitelist:          config.GetEnvStringList("RATELIMIT_WHITELIST", nil),
			SweepInterval:      config.GetEnvDuration("RATELIMIT_SWEEP_INTERVAL", 1*time.Minute),
		},
		Cache: Cache{
			Enabled:    config.GetEnvBool("CACHE_ENABLED", true),
			TTL:        config.GetEnvDuration("CACHE_TTL", 1*time.Hour),
			MaxEntries: config.GetEnvInt("CACHE_MAX_ENTRIES", 1000),
		},
		RAG: RAG{
			Enabled:       config.GetEnvBool("RAG_ENABLED", true),
			DataDir:       config.GetEnvString("RAG_DATA_DIR", "rag"),
			PersistDir:    config.GetEnvString("RAG_PERSIST_DIR", "rag_index"),
			ChunkTokens:   config.GetEnvInt("RAG_CHUNK_TOKENS", 300),
			ChunkOverlap:  config.GetEnvInt("RAG_CHUNK_OVERLAP", 60),
			TopK:          config.GetEnvInt("RAG_TOP_K", 4),
			MinSimilarity: config.GetEnvFloat32("RAG_MIN_SIMILARITY", 0.7),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that must stop startup when wrong. Guard and cache
// parameters are validated again by their component constructors; this layer
// only rejects what the helpers cannot default.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY must be set")
	}
	if len(c.OpenAI.APIKey) < minAPIKeyLength {
		return fmt.Errorf("OPENAI_API_KEY must be at least %d characters", minAPIKeyLength)
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be between 0 and 2, got %v", c.OpenAI.Temperature)
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("MAX_TOKENS must be positive, got %d", c.OpenAI.MaxTokens)
	}
	if err := config.ValidatePositiveDuration(c.OpenAI.Timeout); err != nil {
		return fmt.Errorf("invalid OPENAI_TIMEOUT: %w", err)
	}
	if c.RAG.Enabled {
		if c.RAG.ChunkTokens <= 0 {
			return fmt.Errorf("RAG_CHUNK_TOKENS must be positive, got %d", c.RAG.ChunkTokens)
		}
		if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkTokens {
			return fmt.Errorf("RAG_CHUNK_OVERLAP must be in [0, chunk tokens), got %d", c.RAG.ChunkOverlap)
		}
		if c.RAG.TopK <= 0 {
			return fmt.Errorf("RAG_TOP_K must be positive, got %d", c.RAG.TopK)
		}
	}
	return nil
}
