package config

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = ".courseqa.yml"

// providerDefaults holds the chat and embedding model used when a provider
// is chosen without an explicit model.
var providerDefaults = map[ProviderType]struct {
	ChatModel      string
	EmbeddingModel string
	BaseURL        string
}{
	ProviderDeepSeek:   {ChatModel: "deepseek-chat", BaseURL: "https://api.deepseek.com/v1"},
	ProviderOpenAI:     {ChatModel: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenRouter: {ChatModel: "deepseek/deepseek-chat", BaseURL: "https://openrouter.ai/api/v1"},
	ProviderAnthropic:  {ChatModel: "claude-haiku-4-5-20251001"},
	ProviderGoogle:     {ChatModel: "gemini-2.5-flash", EmbeddingModel: "text-embedding-004"},
	ProviderOllama:     {ChatModel: "llama3", EmbeddingModel: "nomic-embed-text", BaseURL: "http://localhost:11434"},
}

// DefaultExtensions are the upload types the extractor understands.
var DefaultExtensions = []string{".pdf", ".docx", ".txt", ".md", ".ipynb", ".html", ".htm"}

// DefaultExcludes are glob patterns skipped when ingesting a directory.
var DefaultExcludes = []string{
	".git/**",
	"**/.ipynb_checkpoints/**",
	"**/~$*",
	"node_modules/**",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			Provider:       ProviderDeepSeek,
			Model:          "deepseek-chat",
			Temperature:    0.7,
			TimeoutSeconds: 200,
			MaxRetries:     2,
		},
		Classifier: ClassifierConfig{
			Temperature: 0.7,
		},
		Embeddings: EmbeddingConfig{
			Provider: ProviderOllama,
			Model:    "nomic-embed-text",
		},
		Index: IndexConfig{
			Backend:    BackendChromem,
			Dir:        "./chroma_db",
			Collection: "course_docs",
			Compress:   true,
		},
		Chunking: ChunkingConfig{
			Size:    1024,
			Overlap: 128,
		},
		Ingest: IngestConfig{
			MaxFileMB:  3,
			Extensions: DefaultExtensions,
			Include:    []string{"**"},
			Exclude:    DefaultExcludes,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		CourseInfo: "course_data.json",
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Path: "courseqa.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultChatModel returns the chat model used for provider when none is set.
func DefaultChatModel(provider ProviderType) string {
	return providerDefaults[provider].ChatModel
}

// DefaultEmbeddingModel returns the embedding model for provider, or ""
// if the provider has no embedding endpoint.
func DefaultEmbeddingModel(provider ProviderType) string {
	return providerDefaults[provider].EmbeddingModel
}

// DefaultBaseURL returns the API base URL for OpenAI-compatible providers.
func DefaultBaseURL(provider ProviderType) string {
	return providerDefaults[provider].BaseURL
}
