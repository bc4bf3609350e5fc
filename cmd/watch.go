package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/course-assistant/internal/indexer"
	"github.com/ziadkadry99/course-assistant/internal/walker"
	"github.com/ziadkadry99/course-assistant/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest course files as they are added to a directory",
	Long: `Watches a directory tree and ingests new or modified course files after a
short quiet period. Use --initial to ingest everything already present first.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("initial", false, "ingest existing files before watching")
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "quiet period before a batch is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir := args[0]
	initial, _ := cmd.Flags().GetBool("initial")
	debounce, _ := cmd.Flags().GetDuration("debounce")

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

	if initial {
		res, err := pipeline.IngestDir(ctx, walker.WalkerConfig{
			RootDir:    dir,
			Include:    cfg.Ingest.Include,
			Exclude:    cfg.Ingest.Exclude,
			Extensions: cfg.Ingest.Extensions,
		})
		if err != nil {
			return err
		}
		printIngestSummary(res, index.Count())
	}

	w, err := watcher.New(watcher.Config{
		Dir:        dir,
		Extensions: cfg.Ingest.Extensions,
		Exclude:    cfg.Ingest.Exclude,
		Debounce:   debounce,
	}, pipeline)
	if err != nil {
		return err
	}
	w.OnBatch = func(r *indexer.Result) {
		for _, s := range r.Skipped {
			log.Warn().Str("file", s.Name).Str("reason", s.Reason).Msg("file skipped")
		}
		for _, f := range r.Failed {
			log.Error().Str("file", f.Name).Str("error", f.Error).Msg("file failed")
		}
	}

	log.Info().Str("dir", dir).Dur("debounce", debounce.Round(time.Millisecond)).Msg("watching for course files")
	return w.Run(ctx)
}
