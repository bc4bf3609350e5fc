package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to courseqa! Let's configure the course assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat provider.
	chatPrompt := promptui.Select{
		Label: "Select chat provider",
		Items: []string{"deepseek", "openai", "openrouter", "anthropic", "google", "ollama"},
	}
	_, chatStr, err := chatPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chat provider selection: %w", err)
	}
	cfg.Chat.Provider = ProviderType(chatStr)
	cfg.Chat.Model = DefaultChatModel(cfg.Chat.Provider)
	cfg.Chat.BaseURL = DefaultBaseURL(cfg.Chat.Provider)

	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: cfg.Chat.Model,
	}
	if cfg.Chat.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}

	// 2. Embedding provider.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"ollama", "openai", "google"},
	}
	_, embedStr, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.Embeddings.Provider = ProviderType(embedStr)
	cfg.Embeddings.Model = DefaultEmbeddingModel(cfg.Embeddings.Provider)
	if cfg.Embeddings.Provider == ProviderOllama {
		cfg.Embeddings.BaseURL = DefaultBaseURL(ProviderOllama)
	}

	// 3. Index location.
	dirPrompt := promptui.Prompt{
		Label:   "Vector index directory",
		Default: cfg.Index.Dir,
	}
	if cfg.Index.Dir, err = dirPrompt.Run(); err != nil {
		return nil, fmt.Errorf("index dir: %w", err)
	}

	// 4. Chunking.
	sizePrompt := promptui.Prompt{
		Label:    "Chunk size (characters)",
		Default:  strconv.Itoa(cfg.Chunking.Size),
		Validate: positiveInt,
	}
	sizeStr, err := sizePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	cfg.Chunking.Size, _ = strconv.Atoi(strings.TrimSpace(sizeStr))
	if cfg.Chunking.Overlap >= cfg.Chunking.Size {
		cfg.Chunking.Overlap = cfg.Chunking.Size / 8
	}

	// 5. Course info file.
	infoPrompt := promptui.Prompt{
		Label:   "Course info JSON (keyword -> answer)",
		Default: cfg.CourseInfo,
	}
	if cfg.CourseInfo, err = infoPrompt.Run(); err != nil {
		return nil, fmt.Errorf("course info: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, p := range []ProviderType{cfg.Chat.Provider, cfg.Embeddings.Provider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env) before running courseqa.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
