package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderConfig selects and configures a chat backend.
type ProviderConfig struct {
	Type    string
	Model   string
	BaseURL string
	APIKey  string
}

// NewProvider creates a new LLM provider based on the given provider type.
// Supported types: "deepseek", "openai", "openrouter", "anthropic",
// "google", "ollama". Every type except ollama requires an API key.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" && cfg.Type != "ollama" {
		return nil, fmt.Errorf("provider %q requires an API key", cfg.Type)
	}

	switch cfg.Type {
	case "deepseek", "openrouter":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider %q requires a base URL", cfg.Type)
		}
		return NewOpenAICompatibleProvider(cfg.Type, cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "openai":
		return NewOpenAICompatibleProvider("openai", cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model), nil

	case "google":
		return NewGoogleProvider(ctx, cfg.APIKey, cfg.Model)

	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOpenAICompatibleProvider("ollama", "ollama", cfg.Model, ollamaBaseURL(host)), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}

// ollamaBaseURL points a bare Ollama host at its OpenAI-compatible API.
func ollamaBaseURL(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasSuffix(host, "/v1") {
		return host
	}
	return host + "/v1"
}
