package embeddings

import (
	"context"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
//
// A single Embedder instance is shared by ingestion and querying so that
// chunks and queries land in the same vector space.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	// Zero means the backend decides.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// EmbedOne embeds a single text. An embedder that answers with no vector
// or an empty vector is reported as an error rather than a nil result.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	results, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) != 1 || len(results[0]) == 0 {
		return nil, fmt.Errorf("%s returned no embedding", e.Name())
	}
	return results[0], nil
}
