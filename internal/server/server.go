package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/course-assistant/internal/assistant"
	"github.com/ziadkadry99/course-assistant/internal/audit"
	"github.com/ziadkadry99/course-assistant/internal/indexer"
	"github.com/ziadkadry99/course-assistant/internal/llm"
	"github.com/ziadkadry99/course-assistant/internal/sessions"
	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

// Config holds server configuration.
type Config struct {
	Port           int
	CORSOrigins    []string
	MaxFileBytes   int64         // per uploaded file; larger files are skipped
	MaxUploadBytes int64         // whole multipart request
	RequestTimeout time.Duration // per request, must cover the model calls
}

// Answerer produces the assistant reply for one turn.
type Answerer interface {
	Answer(ctx context.Context, history []llm.Message, userText string) assistant.Reply
}

// Ingester indexes uploaded files.
type Ingester interface {
	IngestFiles(ctx context.Context, files []indexer.File) (*indexer.Result, error)
}

// IndexStats reports the state of the vector index.
type IndexStats interface {
	Stats() vectordb.Stats
}

// Auditor records notable events. Failures are logged and never reach the
// client.
type Auditor interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Server is the HTTP front of the course assistant.
type Server struct {
	cfg        Config
	assistant  Answerer
	sessions   *sessions.Store
	ingester   Ingester
	index      IndexStats
	auditor    Auditor
	validate   *validator.Validate
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies and builds its routes.
func New(cfg Config, a Answerer, store *sessions.Store, ingester Ingester, index IndexStats) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		cfg:       cfg,
		assistant: a,
		sessions:  store,
		ingester:  ingester,
		index:     index,
		validate:  validator.New(),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The websocket is long-lived and must not inherit the request timeout.
	r.Get("/ws/chat", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		s.registerRoutes(r)
	})

	return r
}

// SetAuditor enables the audit trail.
func (s *Server) SetAuditor(a Auditor) { s.auditor = a }

func (s *Server) record(ctx context.Context, action audit.Action, sessionID, summary, detail string) {
	if s.auditor == nil {
		return
	}
	entry := audit.Entry{Action: action, SessionID: sessionID, Summary: summary, Detail: detail}
	if err := s.auditor.Log(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", string(action)).Msg("audit log failed")
	}
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("courseqa server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
