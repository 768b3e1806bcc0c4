package config

import "strings"

// Config stores environment configuration for Tutor.
type Config struct {
	Port                string
	DatabaseURL         string
	LLMProvider         string
	LLMModel            string
	LLMAPIKey           string
	LLMAPIURL           string
	LLMMaxTokens        int
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingAPIURL     string
	EmbeddingDimensions int
	SearchLimit         int
	MaxHistoryExchanges int
	ChunkCharLimit      int
	ChunkCharOverlap    int
	DocsDir             string
	IngestOnStartup     bool
	MaxQueryRunes       int
}

// LoadConfig loads the Tutor configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:                GetEnv("PORT", "8000"),
		DatabaseURL:         RequireEnv("DATABASE_URL"),
		LLMProvider:         GetEnv("LLM_PROVIDER", "anthropic"),
		LLMModel:            GetEnv("LLM_MODEL", "claude-sonnet-4-20250514"),
		LLMAPIKey:           GetEnv("LLM_API_KEY", GetEnv("ANTHROPIC_API_KEY", "")),
		LLMAPIURL:           GetEnv("LLM_API_URL", ""),
		LLMMaxTokens:        GetEnvInt("LLM_MAX_TOKENS", 800),
		EmbeddingProvider:   GetEnv("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:      GetEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKey:     GetEnv("EMBEDDING_API_KEY", GetEnv("OPENAI_API_KEY", "")),
		EmbeddingAPIURL:     GetEnv("EMBEDDING_API_URL", ""),
		EmbeddingDimensions: GetEnvInt("EMBEDDING_DIMENSIONS", 0),
		SearchLimit:         GetEnvInt("TUTOR_SEARCH_LIMIT", 5),
		MaxHistoryExchanges: GetEnvInt("TUTOR_MAX_HISTORY_EXCHANGES", 2),
		ChunkCharLimit:      GetEnvInt("CHUNK_CHAR_LIMIT", 800),
		ChunkCharOverlap:    GetEnvInt("CHUNK_CHAR_OVERLAP", 100),
		DocsDir:             GetEnv("TUTOR_DOCS_DIR", "docs"),
		IngestOnStartup:     GetEnvBool("TUTOR_INGEST_ON_STARTUP", true),
		MaxQueryRunes:       GetEnvInt("TUTOR_MAX_QUERY_RUNES", 10000),
	}
}

// Sanitize trims surrounding whitespace from string fields that commonly pick
// up stray newlines when set from shell heredocs or compose files.
func (c Config) Sanitize() Config {
	c.Port = strings.TrimSpace(c.Port)
	c.LLMModel = strings.TrimSpace(c.LLMModel)
	c.EmbeddingModel = strings.TrimSpace(c.EmbeddingModel)
	c.DocsDir = strings.TrimSpace(c.DocsDir)
	return c
}
