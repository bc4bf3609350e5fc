package cmd

import (
	"os"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/course-assistant/internal/config"
)

var (
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "courseqa",
	Short: "Retrieval-augmented question answering over course material",
	Long: `courseqa ingests course documents (PDF, Word, Markdown, notebooks,
HTML, plain text) into a vector index and answers student questions over
them. Each message is routed by intent: document questions are grounded in
retrieved passages, course-management questions are answered from a
keyword table, and everything else goes to the language model directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging("")
		return config.LoadDotEnv(envFile)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupLogging installs a console logger on stderr. -v wins over level.
func setupLogging(level string) {
	lvl := log.InfoLevel
	if level != "" {
		lvl = log.ParseLevel(level)
	}
	if verbose {
		lvl = log.DebugLevel
	}
	log.DefaultLogger = log.Logger{
		Level: lvl,
		Writer: &log.ConsoleWriter{
			Writer:      os.Stderr,
			ColorOutput: log.IsTerminal(os.Stderr.Fd()),
		},
	}
}
