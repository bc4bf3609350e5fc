package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Show the state of the course knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		index, err := openIndex(ctx, cfg)
		if err != nil {
			return err
		}
		defer index.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(index.Stats())
	},
}

var indexExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a compressed snapshot of the chromem index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		index, err := openIndex(ctx, cfg)
		if err != nil {
			return err
		}
		defer index.Close()

		chromem, ok := index.(*vectordb.ChromemIndex)
		if !ok {
			return fmt.Errorf("export is only supported for the chromem backend, use pg_dump for pgvector")
		}
		if err := chromem.Export(args[0]); err != nil {
			return err
		}
		fmt.Printf("Exported %d chunks to %s\n", chromem.Count(), args[0])
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexExportCmd)
	rootCmd.AddCommand(indexCmd)
}
