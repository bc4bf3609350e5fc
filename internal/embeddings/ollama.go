package embeddings

import "strings"

const defaultOllamaBaseURL = "http://localhost:11434"

// NewOllamaEmbedder creates an embedder backed by a local Ollama instance
// through its OpenAI-compatible endpoint.
// model is the Ollama model name (e.g. "nomic-embed-text").
// baseURL defaults to http://localhost:11434 if empty.
func NewOllamaEmbedder(model string, dimensions int, baseURL string) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	// Ollama ignores the key, go-openai still sends the header.
	e := NewOpenAIEmbedder("ollama", OpenAIModel(model), baseURL, 0)
	e.nativeDims = dimensions
	e.name = "ollama/" + model
	return e
}
