package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/course-assistant/internal/audit"
	"github.com/ziadkadry99/course-assistant/internal/db"
	"github.com/ziadkadry99/course-assistant/internal/server"
	"github.com/ziadkadry99/course-assistant/internal/sessions"
)

var servePort int

const auditRetentionDays = 90

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket chat server",
	Long:  `Starts the course assistant server with the REST API for sessions, uploads and messages, plus a websocket chat endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

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

		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		// Both model calls of a document question must fit in one request.
		chatTimeout := time.Duration(cfg.Chat.TimeoutSeconds) * time.Second
		srv := server.New(server.Config{
			Port:           port,
			CORSOrigins:    cfg.Server.CORSOrigins,
			MaxFileBytes:   cfg.MaxFileBytes(),
			RequestTimeout: 3*chatTimeout + 10*time.Second,
		}, a, sessions.NewStore(database), createPipeline(cfg, index), index)

		trail := audit.NewStore(database)
		srv.SetAuditor(trail)
		audit.RegisterRoutes(srv.Router(), trail)
		if n, err := trail.DeleteBefore(ctx, time.Now().AddDate(0, 0, -auditRetentionDays)); err == nil && n > 0 {
			log.Info().Int64("entries", n).Msg("pruned audit trail")
		}

		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown")
			}
		}()

		st := index.Stats()
		log.Info().
			Str("version", Version).
			Str("database", database.Path()).
			Str("index", st.Backend).
			Int("chunks", st.Chunks).
			Msg("starting courseqa server")

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8000, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
