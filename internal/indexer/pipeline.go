package indexer

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/course-assistant/internal/vectordb"
	"github.com/ziadkadry99/course-assistant/internal/walker"
)

// Pipeline runs the write path: extract -> chunk -> embed -> store.
type Pipeline struct {
	index      vectordb.Index
	batcher    *Batcher
	onProgress ProgressFunc
}

// NewPipeline creates a Pipeline that writes into index. maxFileBytes of
// zero disables the size limit.
func NewPipeline(index vectordb.Index, splitter *Splitter, maxFileBytes int64) *Pipeline {
	return &Pipeline{
		index:   index,
		batcher: NewBatcher(runtime.NumCPU(), splitter, maxFileBytes),
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// IngestFiles indexes a batch of uploaded files. Unsupported, oversized and
// empty files are skipped, and a file whose chunks cannot be stored is
// recorded as failed; neither stops the rest of the batch. The returned
// error is non-nil only when ctx is cancelled.
func (p *Pipeline) IngestFiles(ctx context.Context, files []File) (*Result, error) {
	start := time.Now()
	result := &Result{
		Ingested: []string{},
		Skipped:  []SkippedFile{},
		Failed:   []FailedFile{},
	}

	prepared := p.batcher.Prepare(ctx, files)

	for i, f := range prepared {
		switch {
		case f.err != nil:
			result.Failed = append(result.Failed, FailedFile{Name: f.name, Error: f.err.Error()})
		case f.skip != "":
			log.Info().Str("file", f.name).Str("reason", f.skip).Msg("skipping file")
			result.Skipped = append(result.Skipped, SkippedFile{Name: f.name, Reason: f.skip})
		default:
			if err := p.index.Add(ctx, f.chunks); err != nil {
				log.Error().Err(err).Str("file", f.name).Msg("indexing file failed")
				result.Failed = append(result.Failed, FailedFile{Name: f.name, Error: err.Error()})
			} else {
				log.Info().Str("file", f.name).Int("chunks", len(f.chunks)).Msg("indexed file")
				result.Ingested = append(result.Ingested, f.name)
				result.Chunks += len(f.chunks)
			}
		}

		if p.onProgress != nil {
			p.onProgress(i+1, len(prepared), f.name)
		}
	}

	result.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// IngestPaths reads files found by the walker and ingests them. Read
// failures are reported as failed files.
func (p *Pipeline) IngestPaths(ctx context.Context, infos []walker.FileInfo) (*Result, error) {
	var files []File
	var unreadable []FailedFile
	for _, info := range infos {
		data, err := os.ReadFile(info.Path)
		if err != nil {
			unreadable = append(unreadable, FailedFile{Name: info.RelPath, Error: fmt.Sprintf("read: %v", err)})
			continue
		}
		files = append(files, File{Name: info.Path, Data: data})
	}

	result, err := p.IngestFiles(ctx, files)
	if result != nil {
		result.Failed = append(result.Failed, unreadable...)
	}
	return result, err
}

// IngestDir walks a directory with the given filters and ingests every
// matching file.
func (p *Pipeline) IngestDir(ctx context.Context, cfg walker.WalkerConfig) (*Result, error) {
	infos, err := walker.Walk(cfg)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", cfg.RootDir, err)
	}
	log.Info().Str("dir", cfg.RootDir).Int("files", len(infos)).Msg("ingesting directory")
	return p.IngestPaths(ctx, infos)
}
