package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. COURSEQA_CHAT_MODEL.
const EnvPrefix = "COURSEQA_"

// ErrMissingAPIKey is returned when a keyed provider has no credential in
// the environment.
var ErrMissingAPIKey = errors.New("missing API key")

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// A missing file is not an error. Variables already set are not overridden.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (COURSEQA_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Model and endpoint follow the provider unless set explicitly.
	cfg := DefaultConfig()
	cfg.Chat.Model, cfg.Chat.BaseURL = "", ""
	cfg.Embeddings.Model, cfg.Embeddings.BaseURL = "", ""

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// COURSEQA_CHAT_MAX_RETRIES -> chat.max_retries
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.applyProviderDefaults()
	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if section, rest, ok := strings.Cut(key, "_"); ok && isSection(section) {
		return section + "." + rest
	}
	return key
}

func isSection(name string) bool {
	switch name {
	case "chat", "classifier", "embeddings", "index", "chunking", "ingest",
		"retrieval", "server", "database", "log":
		return true
	}
	return false
}

func (c *Config) applyProviderDefaults() {
	if c.Chat.Model == "" {
		c.Chat.Model = DefaultChatModel(c.Chat.Provider)
	}
	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = DefaultBaseURL(c.Chat.Provider)
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = DefaultEmbeddingModel(c.Embeddings.Provider)
	}
	if c.Embeddings.BaseURL == "" && c.Embeddings.Provider == ProviderOllama {
		c.Embeddings.BaseURL = DefaultBaseURL(ProviderOllama)
	}
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var chatProviders = map[ProviderType]bool{
	ProviderDeepSeek:   true,
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderAnthropic:  true,
	ProviderGoogle:     true,
	ProviderOllama:     true,
}

var embeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderGoogle: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !chatProviders[c.Chat.Provider] {
		return fmt.Errorf("invalid chat provider %q", c.Chat.Provider)
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("chat model is required")
	}
	if c.Chat.TimeoutSeconds <= 0 {
		return fmt.Errorf("chat timeout_seconds must be positive")
	}
	if c.Chat.MaxRetries < 0 {
		return fmt.Errorf("chat max_retries must be non-negative")
	}
	if c.Chat.RequestsPerMinute < 0 {
		return fmt.Errorf("chat requests_per_minute must be non-negative")
	}

	if !embeddingProviders[c.Embeddings.Provider] {
		return fmt.Errorf("invalid embedding provider %q: must be one of openai, google, ollama", c.Embeddings.Provider)
	}
	if c.Embeddings.Model == "" {
		return fmt.Errorf("embedding model is required")
	}

	switch c.Index.Backend {
	case BackendChromem:
		if c.Index.Dir == "" {
			return fmt.Errorf("index dir is required")
		}
	case BackendPGVector:
		if c.Index.PostgresDSN == "" {
			return fmt.Errorf("index postgres_dsn is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("invalid index backend %q: must be chromem or pgvector", c.Index.Backend)
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking overlap must be in [0, size)")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive")
	}
	if c.Ingest.MaxFileMB <= 0 {
		return fmt.Errorf("ingest max_file_mb must be positive")
	}

	return nil
}

// MaxFileBytes returns the per-file upload limit in bytes.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.Ingest.MaxFileMB) * 1024 * 1024
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}

// RequireAPIKey returns the credential for provider from the environment.
// Providers without a key (ollama) return "" and no error.
func RequireAPIKey(provider ProviderType) (string, error) {
	name := APIKeyEnvVar(provider)
	if name == "" {
		return "", nil
	}
	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, name)
	}
	return key, nil
}
