package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/course-assistant/internal/indexer"
	"github.com/ziadkadry99/course-assistant/internal/progress"
	"github.com/ziadkadry99/course-assistant/internal/walker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Add course files or directories to the knowledge base",
	Long: `Extracts text from each file, splits it into chunks and adds the chunks to
the vector index. Directories are walked recursively using the ingest
include/exclude patterns. Unsupported, oversized and empty files are skipped
and reported; they never stop the rest of the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("json", false, "print the ingestion summary as JSON")
	ingestCmd.Flags().Bool("no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	index, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer index.Close()

	pipeline := createPipeline(cfg, index)

	total := &indexer.Result{
		Ingested: []string{},
		Skipped:  []indexer.SkippedFile{},
		Failed:   []indexer.FailedFile{},
	}
	start := time.Now()

	var files []walker.FileInfo
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		if !info.IsDir() {
			abs, _ := filepath.Abs(path)
			files = append(files, walker.FileInfo{Path: abs, RelPath: filepath.Base(path), Size: info.Size()})
			continue
		}

		if !noProgress && !jsonOutput {
			pipeline.SetProgressFunc(progress.Func(progress.NewReporter()))
		}
		res, err := pipeline.IngestDir(ctx, walker.WalkerConfig{
			RootDir:    path,
			Include:    cfg.Ingest.Include,
			Exclude:    cfg.Ingest.Exclude,
			Extensions: cfg.Ingest.Extensions,
		})
		merge(total, res)
		if err != nil {
			return err
		}
	}

	if len(files) > 0 {
		if !noProgress && !jsonOutput {
			pipeline.SetProgressFunc(progress.Func(progress.NewReporter()))
		}
		res, err := pipeline.IngestPaths(ctx, files)
		merge(total, res)
		if err != nil {
			return err
		}
	}
	total.Duration = time.Since(start)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(total)
	}
	printIngestSummary(total, index.Count())
	return nil
}

func merge(into, from *indexer.Result) {
	if from == nil {
		return
	}
	into.Ingested = append(into.Ingested, from.Ingested...)
	into.Skipped = append(into.Skipped, from.Skipped...)
	into.Failed = append(into.Failed, from.Failed...)
	into.Chunks += from.Chunks
}

func printIngestSummary(r *indexer.Result, indexed int) {
	fmt.Printf("Ingested %d of %d files (%d chunks) in %s\n",
		len(r.Ingested), r.Total(), r.Chunks, r.Duration.Round(time.Millisecond))
	for _, s := range r.Skipped {
		fmt.Printf("  skipped %s: %s\n", s.Name, s.Reason)
	}
	for _, f := range r.Failed {
		fmt.Printf("  failed  %s: %s\n", f.Name, f.Error)
	}
	fmt.Printf("Knowledge base now holds %d chunks.\n", indexed)
}
