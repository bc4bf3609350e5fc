package vectordb

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/course-assistant/internal/embeddings"
)

const (
	metaSource = "source"
	metaSeq    = "seq"
)

// ChromemIndex implements Index on a persistent chromem-go database. Every
// added chunk is written to dir immediately, so no explicit save step exists.
type ChromemIndex struct {
	dir      string
	name     string
	compress bool

	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc

	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	nextSeq    int64
}

// NewChromemIndex returns an absent index rooted at dir. Call LoadOrInit to
// pick up data persisted by an earlier run.
func NewChromemIndex(dir, collection string, compress bool, embedder embeddings.Embedder) *ChromemIndex {
	return &ChromemIndex{
		dir:       dir,
		name:      collection,
		compress:  compress,
		embedder:  embedder,
		embedFunc: embeddings.ToChromemFunc(embedder),
	}
}

func (s *ChromemIndex) LoadOrInit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection != nil {
		return nil
	}
	if !dirHasEntries(s.dir) {
		return nil
	}

	db, err := chromem.NewPersistentDB(s.dir, s.compress)
	if err != nil {
		return fmt.Errorf("open chromem db %s: %w", s.dir, err)
	}
	s.db = db

	col := db.GetCollection(s.name, s.embedFunc)
	if col == nil {
		// Directory holds other data but not our collection.
		return nil
	}
	s.collection = col
	// Sequence numbers are dense from zero, so the count is the next one.
	s.nextSeq = int64(col.Count())
	return nil
}

func (s *ChromemIndex) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	chunks = append([]Chunk(nil), chunks...)
	if err := s.embedMissing(ctx, chunks); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection == nil {
		if err := s.create(); err != nil {
			return err
		}
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		docs[i] = chromem.Document{
			ID:      id,
			Content: c.Text,
			Metadata: map[string]string{
				metaSource: c.Source,
				metaSeq:    strconv.FormatInt(s.nextSeq+int64(i), 10),
			},
			Embedding: c.Embedding,
		}
	}

	// AddDocuments skips every document on a cancelled context without
	// reporting it.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		// Some documents may already be stored, so the batch's sequence
		// numbers stay reserved.
		s.nextSeq += int64(len(docs))
		return fmt.Errorf("chromem add: %w", err)
	}
	s.nextSeq += int64(len(docs))
	return nil
}

// embedMissing fills in embeddings in one batch before anything is written,
// so an unreachable backend never leaves text stored without a vector.
func (s *ChromemIndex) embedMissing(ctx context.Context, chunks []Chunk) error {
	var texts []string
	var idx []int
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			texts = append(texts, c.Text)
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("embed chunks: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for j, i := range idx {
		if len(vecs[j]) == 0 {
			return fmt.Errorf("embed chunks: empty vector for chunk %d", i)
		}
		chunks[i].Embedding = vecs[j]
	}
	return nil
}

func (s *ChromemIndex) create() error {
	if s.db == nil {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
		db, err := chromem.NewPersistentDB(s.dir, s.compress)
		if err != nil {
			return fmt.Errorf("create chromem db %s: %w", s.dir, err)
		}
		s.db = db
	}
	col, err := s.db.GetOrCreateCollection(s.name, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.collection = col
	s.nextSeq = int64(col.Count())
	return nil
}

func (s *ChromemIndex) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.collection == nil {
		return nil, ErrNotReady
	}
	if k <= 0 {
		return nil, nil
	}

	// chromem-go requires nResults <= collection size and picks freely
	// among equal scores, so widen the candidate set until no candidate
	// tied with the k-th result can have been left out.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	n := min(count, 2*k)
	for {
		candidates, err := s.query(ctx, query, n)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, nil
		}
		floor := candidates[0].Similarity
		for _, c := range candidates[1:] {
			floor = min(floor, c.Similarity)
		}
		ranked := rank(candidates, k)
		if n == count || len(ranked) < k || ranked[k-1].Similarity > floor {
			return ranked, nil
		}
		n = min(count, 2*n)
	}
}

// query returns the n nearest documents in chromem's order.
func (s *ChromemIndex) query(ctx context.Context, query string, n int) ([]SearchResult, error) {
	results, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		seq, _ := strconv.ParseInt(r.Metadata[metaSeq], 10, 64)
		out[i] = SearchResult{
			Chunk: Chunk{
				ID:     r.ID,
				Text:   r.Content,
				Source: r.Metadata[metaSource],
			},
			Similarity: r.Similarity,
			Seq:        seq,
		}
	}
	return out, nil
}

func (s *ChromemIndex) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection != nil
}

func (s *ChromemIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return 0
	}
	return s.collection.Count()
}

func (s *ChromemIndex) Stats() Stats {
	return Stats{Backend: "chromem", Exists: s.Exists(), Chunks: s.Count()}
}

// Export writes a gzip-compressed snapshot of the whole database to path.
func (s *ChromemIndex) Export(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrNotReady
	}
	if err := s.db.ExportToFile(path, true, ""); err != nil {
		return fmt.Errorf("export index: %w", err)
	}
	return nil
}

func (s *ChromemIndex) Close() error {
	return nil
}

func dirHasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
