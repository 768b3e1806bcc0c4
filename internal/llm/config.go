package llm

import (
	"fmt"
	"strings"
)

type Config struct {
	Provider  string
	Model     string
	APIKey    string
	APIURL    string
	MaxTokens int
}

// NewClient creates a completion client for the configured provider.
// Anthropic is the only completion backend; embeddings support more
// providers, see NewEmbeddingClient.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic", "":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
