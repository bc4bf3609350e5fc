package vectordb

// Chunk is a bounded text segment with source provenance, the unit of
// storage and retrieval. Chunks are immutable once added to an index.
type Chunk struct {
	ID     string
	Text   string
	Source string

	// Embedding is optional. When empty the index embeds Text itself.
	Embedding []float32
}

// SearchResult pairs a chunk with its similarity to the query.
type SearchResult struct {
	Chunk      Chunk
	Similarity float32

	// Seq is the insertion position, used to order equal similarities.
	Seq int64
}

// Stats summarizes an index for status endpoints.
type Stats struct {
	Backend string `json:"backend"`
	Exists  bool   `json:"exists"`
	Chunks  int    `json:"chunks"`
}
