// Package watcher keeps the course index in sync with a directory of
// course material by ingesting files as they appear or change.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/course-assistant/internal/indexer"
	"github.com/ziadkadry99/course-assistant/internal/walker"
)

// DefaultDebounce is how long the watcher waits after the last event
// before ingesting the batch.
const DefaultDebounce = 2 * time.Second

// Ingester is the part of the indexing pipeline the watcher drives.
type Ingester interface {
	IngestPaths(ctx context.Context, infos []walker.FileInfo) (*indexer.Result, error)
}

// Config controls which files are watched.
type Config struct {
	Dir        string
	Extensions []string      // Accepted extensions (".pdf"); empty accepts all.
	Exclude    []string      // Glob patterns relative to Dir.
	Debounce   time.Duration // Quiet period before a batch is ingested.
}

// Watcher ingests files created or written under a directory tree.
type Watcher struct {
	cfg      Config
	root     string
	ingester Ingester
	fsw      *fsnotify.Watcher

	// OnBatch, if set, receives the result of each ingested batch.
	OnBatch func(*indexer.Result)
}

// New creates a watcher over cfg.Dir and all its subdirectories.
func New(cfg Config, ingester Ingester) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cfg.Dir, err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("watch %s: %w", cfg.Dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", cfg.Dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{cfg: cfg, root: root, ingester: ingester, fsw: fsw}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. Pending files are ingested
// before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()

	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		w.ingest(ctx, pending)
		pending = make(map[string]struct{})
	}

	for {
		select {
		case <-ctx.Done():
			// Give the last batch a fresh context so it is not cut short.
			flush(context.WithoutCancel(ctx))
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event, pending) {
				timer.Reset(w.cfg.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")

		case <-timer.C:
			flush(ctx)
		}
	}
}

// handle records a relevant event in pending and reports whether it did.
func (w *Watcher) handle(event fsnotify.Event, pending map[string]struct{}) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(event.Name); err != nil {
				log.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
			}
			// Files copied in with the directory produce no events of their own.
			w.collect(event.Name, pending)
			return len(pending) > 0
		}
		return false
	}

	if !w.accept(event.Name) {
		return false
	}
	pending[event.Name] = struct{}{}
	return true
}

func (w *Watcher) collect(dir string, pending map[string]struct{}) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && w.accept(path) {
			pending[path] = struct{}{}
		}
		return nil
	})
}

func (w *Watcher) accept(path string) bool {
	name := filepath.Base(path)
	if walker.IsHidden(name) {
		return false
	}
	if !walker.HasExtension(strings.ToLower(filepath.Ext(name)), w.cfg.Extensions) {
		return false
	}
	return !walker.MatchesExclude(w.relPath(path), w.cfg.Exclude)
}

func (w *Watcher) relPath(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) ingest(ctx context.Context, pending map[string]struct{}) {
	infos := make([]walker.FileInfo, 0, len(pending))
	for path := range pending {
		info, err := os.Stat(path)
		if err != nil {
			// Removed again before the debounce fired.
			continue
		}
		infos = append(infos, walker.FileInfo{
			Path:    path,
			RelPath: w.relPath(path),
			Size:    info.Size(),
			Ext:     strings.ToLower(filepath.Ext(path)),
		})
	}
	if len(infos) == 0 {
		return
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RelPath < infos[j].RelPath })

	result, err := w.ingester.IngestPaths(ctx, infos)
	if err != nil {
		log.Error().Err(err).Int("files", len(infos)).Msg("watch ingestion interrupted")
	}
	if result == nil {
		return
	}
	log.Info().
		Int("ingested", len(result.Ingested)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Int("chunks", result.Chunks).
		Msg("watch batch ingested")
	if w.OnBatch != nil {
		w.OnBatch(result)
	}
}

// addTree watches dir and every non-excluded directory beneath it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && walker.ShouldExcludeDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
