package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/course-assistant/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize courseqa configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the chat and embedding providers and writes the answers to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		if key := config.APIKeyEnvVar(cfg.Chat.Provider); key != "" {
			fmt.Printf("\nSet %s in your environment or %s before running courseqa.\n", key, envFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
