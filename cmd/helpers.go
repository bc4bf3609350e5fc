package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/course-assistant/internal/assistant"
	"github.com/ziadkadry99/course-assistant/internal/config"
	"github.com/ziadkadry99/course-assistant/internal/embeddings"
	"github.com/ziadkadry99/course-assistant/internal/indexer"
	"github.com/ziadkadry99/course-assistant/internal/intent"
	"github.com/ziadkadry99/course-assistant/internal/llm"
	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

// retryBackoff is the base delay between retried completions.
const retryBackoff = 2 * time.Second

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `courseqa init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	setupLogging(cfg.Log.Level)
	return cfg, nil
}

// createEmbedder builds the embedder shared by ingestion and search.
func createEmbedder(ctx context.Context, cfg *config.Config) (embeddings.Embedder, error) {
	ec := cfg.Embeddings
	switch ec.Provider {
	case config.ProviderOpenAI:
		key, err := config.RequireAPIKey(config.ProviderOpenAI)
		if err != nil {
			return nil, err
		}
		return embeddings.NewOpenAIEmbedder(key, embeddings.OpenAIModel(ec.Model), ec.BaseURL, ec.Dimensions), nil
	case config.ProviderGoogle:
		key, err := config.RequireAPIKey(config.ProviderGoogle)
		if err != nil {
			return nil, err
		}
		return embeddings.NewGoogleEmbedder(ctx, key, ec.Model, ec.Dimensions)
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(ec.Model, ec.Dimensions, ec.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", ec.Provider)
	}
}

// openIndex opens the configured vector index and loads any persisted data.
func openIndex(ctx context.Context, cfg *config.Config) (vectordb.Index, error) {
	embedder, err := createEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	var index vectordb.Index
	switch cfg.Index.Backend {
	case config.BackendPGVector:
		pg, err := vectordb.NewPGIndex(ctx, cfg.Index.PostgresDSN, cfg.Index.Collection, embedder)
		if err != nil {
			return nil, fmt.Errorf("connecting to pgvector: %w", err)
		}
		index = pg
	default:
		index = vectordb.NewChromemIndex(cfg.Index.Dir, cfg.Index.Collection, cfg.Index.Compress, embedder)
	}

	if err := index.LoadOrInit(ctx); err != nil {
		index.Close()
		return nil, fmt.Errorf("loading index: %w", err)
	}
	log.Debug().Str("backend", string(cfg.Index.Backend)).Int("chunks", index.Count()).Msg("index loaded")
	return index, nil
}

// createPipeline builds the ingestion pipeline on top of index.
func createPipeline(cfg *config.Config, index vectordb.Index) *indexer.Pipeline {
	splitter := indexer.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	return indexer.NewPipeline(index, splitter, cfg.MaxFileBytes())
}

// createChatProvider builds the chat backend wrapped with the configured
// rate limit and retry policy. A missing API key is fatal.
func createChatProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	key, err := config.RequireAPIKey(cfg.Chat.Provider)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(ctx, llm.ProviderConfig{
		Type:    string(cfg.Chat.Provider),
		Model:   cfg.Chat.Model,
		BaseURL: cfg.Chat.BaseURL,
		APIKey:  key,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	// Every attempt waits for the limiter, so retries count against it.
	provider = llm.NewRateLimitedProvider(provider, cfg.Chat.RequestsPerMinute)
	timeout := time.Duration(cfg.Chat.TimeoutSeconds) * time.Second
	return llm.NewRetryingProvider(provider, cfg.Chat.MaxRetries, retryBackoff, timeout), nil
}

// createAssistant wires the chat client, classifier and course table
// around index.
func createAssistant(ctx context.Context, cfg *config.Config, index vectordb.Index) (*assistant.Assistant, error) {
	provider, err := createChatProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// The retrying provider bounds each attempt, so the clients carry no
	// overall timeout of their own.
	chat := llm.NewClient(provider, llm.ClientConfig{
		Model:       cfg.Chat.Model,
		Temperature: cfg.Chat.Temperature,
	})

	classifierModel := cfg.Classifier.Model
	if classifierModel == "" {
		classifierModel = cfg.Chat.Model
	}
	classifierChat := llm.NewClient(provider, llm.ClientConfig{
		Model:       classifierModel,
		Temperature: cfg.Classifier.Temperature,
	})

	course, err := assistant.LoadCourseInfo(cfg.CourseInfo)
	if err != nil {
		return nil, fmt.Errorf("loading course info: %w", err)
	}
	log.Debug().Str("provider", provider.Name()).Str("model", cfg.Chat.Model).Int("course_entries", course.Len()).Msg("assistant ready")

	return assistant.New(chat, intent.NewClassifier(classifierChat), index, course, assistant.Config{
		TopK: cfg.Retrieval.TopK,
	}), nil
}
