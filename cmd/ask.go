package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/course-assistant/internal/assistant"
	"github.com/ziadkadry99/course-assistant/internal/db"
	"github.com/ziadkadry99/course-assistant/internal/llm"
	"github.com/ziadkadry99/course-assistant/internal/sessions"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the course assistant a single question",
	Long: `Runs one assistant turn from the command line. Without --session the
question is answered with no prior conversation. With --session the stored
history of that session is used and both turns are appended to it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("session", "", "session ID whose history to continue")
	askCmd.Flags().Bool("json", false, "print the full reply as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	sessionID, _ := cmd.Flags().GetString("session")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	index, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer index.Close()

	a, err := createAssistant(ctx, cfg, index)
	if err != nil {
		return err
	}

	var store *sessions.Store
	var history []llm.Message
	if sessionID != "" {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store = sessions.NewStore(database)
		if _, err := store.GetSession(ctx, sessionID); err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		if history, err = store.History(ctx, sessionID); err != nil {
			return fmt.Errorf("loading session %s: %w", sessionID, err)
		}
	}

	reply := a.Answer(ctx, history, question)

	if store != nil {
		user := llm.Message{Role: llm.RoleUser, Content: question}
		answer := llm.Message{Role: llm.RoleAssistant, Content: reply.Answer}
		if err := store.AppendTurn(ctx, sessionID, user, answer, string(reply.Intent)); err != nil {
			return fmt.Errorf("saving turn: %w", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(reply)
	}
	printReply(reply)
	return nil
}

func printReply(reply assistant.Reply) {
	fmt.Println(reply.Answer)
	if len(reply.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(reply.Sources, ", "))
	}
	if len(reply.RecommendedQuestions) > 0 {
		fmt.Println("\nYou might also ask:")
		for i, q := range reply.RecommendedQuestions {
			fmt.Printf("  %d. %s\n", i+1, q)
		}
	}
}
