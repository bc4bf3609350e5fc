package vectordb

import (
	"context"
	"errors"
	"sort"
)

// ErrNotReady is returned by Search when no index has been created yet.
// It is a defined state, not a failure: callers fall back to answering
// without retrieved context.
var ErrNotReady = errors.New("vector index not ready")

// Index stores chunks with their embeddings and answers nearest-neighbour
// queries. Implementations serialize writes and allow concurrent reads.
type Index interface {
	// LoadOrInit opens a previously persisted index if one exists, and
	// otherwise leaves the index absent. Safe to call once at startup.
	LoadOrInit(ctx context.Context) error

	// Add embeds chunks that carry no embedding and stores them durably,
	// creating the index on first use. An empty slice is a no-op.
	Add(ctx context.Context, chunks []Chunk) error

	// Search returns up to k chunks nearest to query, most similar first,
	// equal similarities in insertion order. Returns ErrNotReady if the
	// index does not exist.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Exists reports whether the index has been created.
	Exists() bool

	// Count returns the number of stored chunks.
	Count() int

	// Stats describes the index.
	Stats() Stats

	// Close releases resources held by the index.
	Close() error
}

// rank orders candidates by similarity descending, then by insertion
// order, and keeps the first k.
func rank(results []SearchResult, k int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Seq < results[j].Seq
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
