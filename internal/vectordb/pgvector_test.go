package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ziadkadry99/course-assistant/internal/embeddings/embedtest"
)

// These tests need a PostgreSQL server with the vector extension available,
// e.g. COURSEQA_TEST_POSTGRES_DSN=postgres://postgres@localhost/courseqa_test.
func newTestPGIndex(t *testing.T) *PGIndex {
	t.Helper()
	dsn := os.Getenv("COURSEQA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COURSEQA_TEST_POSTGRES_DSN not set")
	}
	table := fmt.Sprintf("chunks_test_%d", time.Now().UnixNano())
	idx, err := NewPGIndex(context.Background(), dsn, table, embedtest.New(32))
	if err != nil {
		t.Fatalf("NewPGIndex: %v", err)
	}
	t.Cleanup(func() {
		idx.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+idx.table)
		idx.Close()
	})
	return idx
}

func TestPGIndex_Lifecycle(t *testing.T) {
	ctx := context.Background()
	idx := newTestPGIndex(t)

	if err := idx.LoadOrInit(ctx); err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	if _, err := idx.Search(ctx, "q", 3); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if err := idx.Add(ctx, nil); err != nil || idx.Exists() {
		t.Fatalf("Add(nil) should be a no-op: %v", err)
	}

	chunks := sampleChunks()
	if err := idx.Add(ctx, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Count() != len(chunks) {
		t.Errorf("Count: got %d, want %d", idx.Count(), len(chunks))
	}

	results, err := idx.Search(ctx, chunks[1].Text, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].Chunk.Text != chunks[1].Text {
		t.Errorf("expected self-retrieval, got %+v", results)
	}
}
