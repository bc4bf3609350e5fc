package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/ziadkadry99/course-assistant/internal/extract"
	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

// prepared is the outcome of extracting and chunking one file.
type prepared struct {
	name   string
	chunks []vectordb.Chunk
	skip   string
	err    error
}

// Batcher extracts and chunks files concurrently with bounded parallelism.
// Results keep the input order so index insertion order is deterministic.
type Batcher struct {
	concurrency  int
	splitter     *Splitter
	maxFileBytes int64
}

// NewBatcher creates a new Batcher with the given concurrency limit.
func NewBatcher(concurrency int, splitter *Splitter, maxFileBytes int64) *Batcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batcher{
		concurrency:  concurrency,
		splitter:     splitter,
		maxFileBytes: maxFileBytes,
	}
}

// Prepare runs extraction and chunking for every file.
func (b *Batcher) Prepare(ctx context.Context, files []File) []prepared {
	out := make([]prepared, len(files))
	sem := make(chan struct{}, b.concurrency)

	var wg sync.WaitGroup
	for i, f := range files {
		select {
		case <-ctx.Done():
			out[i] = prepared{name: f.Name, err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, f File) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = b.prepareOne(f)
		}(i, f)
	}
	wg.Wait()
	return out
}

func (b *Batcher) prepareOne(f File) prepared {
	p := prepared{name: filepath.Base(f.Name)}

	if b.maxFileBytes > 0 && int64(len(f.Data)) > b.maxFileBytes {
		p.skip = ReasonTooLarge
		return p
	}

	text, err := extract.Extract(f.Data, f.Name)
	if errors.Is(err, extract.ErrUnsupportedType) {
		p.skip = ReasonUnsupported
		return p
	}
	if err != nil {
		p.err = err
		return p
	}

	p.chunks = b.splitter.ChunkDocument(text, f.Name)
	if len(p.chunks) == 0 {
		p.skip = ReasonEmpty
	}
	return p
}
