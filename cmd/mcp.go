package cmd

import (
	"context"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/course-assistant/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing course
search and question answering tools to AI agents. If no chat API key is
configured only the search tools are offered.`,
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

		mcpserver.Version = Version

		a, err := createAssistant(ctx, cfg, index)
		if err != nil {
			log.Warn().Err(err).Msg("ask_course_assistant disabled")
			srv := mcpserver.NewServer(index, nil)
			return srv.Serve()
		}

		log.Info().Int("chunks", index.Count()).Msg("courseqa MCP server started on stdio")
		return mcpserver.NewServer(index, a).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
