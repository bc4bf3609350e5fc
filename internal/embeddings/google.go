package embeddings

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleEmbedder generates embeddings using the Gemini API.
type GoogleEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGoogleEmbedder creates a new Google embedder. dimensions of zero keeps
// the model's native output size.
func NewGoogleEmbedder(ctx context.Context, apiKey, model string, dimensions int) (*GoogleEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GoogleEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

func (e *GoogleEmbedder) Name() string {
	return "google/" + e.model
}

func (e *GoogleEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var cfg *genai.EmbedContentConfig
	if e.dimensions > 0 {
		dims := int32(e.dimensions)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatchSize {
		end := min(i+maxBatchSize, len(texts))

		contents := make([]*genai.Content, 0, end-i)
		for _, text := range texts[i:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("google embedding request failed: %w", err)
		}
		if len(resp.Embeddings) != len(contents) {
			return nil, fmt.Errorf("google returned %d embeddings, expected %d", len(resp.Embeddings), len(contents))
		}
		for _, emb := range resp.Embeddings {
			all = append(all, emb.Values)
		}
	}
	return all, nil
}
