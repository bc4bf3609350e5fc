package config

// ProviderType identifies a chat or embedding backend.
type ProviderType string

const (
	ProviderDeepSeek   ProviderType = "deepseek"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
)

// IndexBackend selects the vector index implementation.
type IndexBackend string

const (
	BackendChromem  IndexBackend = "chromem"
	BackendPGVector IndexBackend = "pgvector"
)

// Config is the top-level courseqa configuration, corresponding to .courseqa.yml.
type Config struct {
	Chat       ChatConfig       `yaml:"chat" koanf:"chat"`
	Classifier ClassifierConfig `yaml:"classifier" koanf:"classifier"`
	Embeddings EmbeddingConfig  `yaml:"embeddings" koanf:"embeddings"`
	Index      IndexConfig      `yaml:"index" koanf:"index"`
	Chunking   ChunkingConfig   `yaml:"chunking" koanf:"chunking"`
	Ingest     IngestConfig     `yaml:"ingest" koanf:"ingest"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" koanf:"retrieval"`
	CourseInfo string           `yaml:"course_info" koanf:"course_info"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Database   DatabaseConfig   `yaml:"database" koanf:"database"`
	Log        LogConfig        `yaml:"log" koanf:"log"`
}

// ChatConfig configures the language model used for answers.
type ChatConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	BaseURL           string       `yaml:"base_url,omitempty" koanf:"base_url"`
	Temperature       float64      `yaml:"temperature" koanf:"temperature"`
	TimeoutSeconds    int          `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	MaxRetries        int          `yaml:"max_retries" koanf:"max_retries"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// ClassifierConfig optionally routes intent classification to a cheaper
// model. Empty fields fall back to the chat settings.
type ClassifierConfig struct {
	Model       string  `yaml:"model,omitempty" koanf:"model"`
	Temperature float64 `yaml:"temperature" koanf:"temperature"`
}

// EmbeddingConfig configures the shared embedding provider.
type EmbeddingConfig struct {
	Provider   ProviderType `yaml:"provider" koanf:"provider"`
	Model      string       `yaml:"model" koanf:"model"`
	BaseURL    string       `yaml:"base_url,omitempty" koanf:"base_url"`
	Dimensions int          `yaml:"dimensions,omitempty" koanf:"dimensions"`
}

// IndexConfig configures where chunks and vectors are persisted.
type IndexConfig struct {
	Backend     IndexBackend `yaml:"backend" koanf:"backend"`
	Dir         string       `yaml:"dir" koanf:"dir"`
	Collection  string       `yaml:"collection" koanf:"collection"`
	Compress    bool         `yaml:"compress" koanf:"compress"`
	PostgresDSN string       `yaml:"postgres_dsn,omitempty" koanf:"postgres_dsn"`
}

// ChunkingConfig sizes are counted in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// IngestConfig limits what uploads are accepted.
type IngestConfig struct {
	MaxFileMB  int      `yaml:"max_file_mb" koanf:"max_file_mb"`
	Extensions []string `yaml:"extensions" koanf:"extensions"`
	Include    []string `yaml:"include" koanf:"include"`
	Exclude    []string `yaml:"exclude" koanf:"exclude"`
}

// RetrievalConfig controls the RAG read path.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" koanf:"top_k"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// DatabaseConfig points at the SQLite session database.
type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
}
