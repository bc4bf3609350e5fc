package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/course-assistant/internal/assistant"
	"github.com/ziadkadry99/course-assistant/internal/audit"
	"github.com/ziadkadry99/course-assistant/internal/indexer"
	"github.com/ziadkadry99/course-assistant/internal/llm"
	"github.com/ziadkadry99/course-assistant/internal/sessions"
)

// uploadSuccess is shown when at least one file reached the index.
const uploadSuccess = "文件已上传成功！已更新知识库。"

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/index", s.handleIndexStats)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Delete("/sessions/{id}/messages", s.handleClearHistory)
		r.Post("/sessions/{id}/files", s.handleUpload)
		r.Post("/sessions/{id}/message", s.handleMessage)
	})
}

type createSessionRequest struct {
	Title string `json:"title" validate:"max=100"`
}

type messageRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}

type messageResponse struct {
	SessionID            string        `json:"session_id"`
	Answer               string        `json:"answer"`
	Intent               string        `json:"intent"`
	RecommendedQuestions []string      `json:"recommended_questions"`
	Sources              []string      `json:"sources,omitempty"`
	History              []llm.Message `json:"history"`
}

type uploadResponse struct {
	Message string          `json:"message"`
	Result  *indexer.Result `json:"result"`
	Files   []string        `json:"uploaded_files"`
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "index not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.index.Stats())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if !s.decode(w, r, &req) {
			return
		}
	}

	sess, err := s.sessions.CreateSession(r.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.record(r.Context(), audit.ActionSessionCreated, sess.ID, sess.Title, "")
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	detail, err := s.sessions.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.DeleteSession(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.record(r.Context(), audit.ActionSessionDeleted, id, "session deleted", "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.ClearHistory(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.record(r.Context(), audit.ActionHistoryCleared, id, "history cleared", "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.chat(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// chat answers one message in a session and persists both turns.
func (s *Server) chat(ctx context.Context, sessionID, message string) (*messageResponse, error) {
	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply := s.assistant.Answer(ctx, history, message)

	err = s.sessions.AppendTurn(ctx, sessionID,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: reply.Answer},
		string(reply.Intent),
	)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionQuestionAnswered, sessionID, string(reply.Intent), strings.Join(reply.Sources, ", "))

	return newMessageResponse(sessionID, reply), nil
}

func newMessageResponse(sessionID string, reply assistant.Reply) *messageResponse {
	return &messageResponse{
		SessionID:            sessionID,
		Answer:               reply.Answer,
		Intent:               string(reply.Intent),
		RecommendedQuestions: reply.RecommendedQuestions,
		Sources:              reply.Sources,
		History:              reply.History,
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		writeStoreError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	files := make([]indexer.File, 0, len(headers))
	names := make([]string, 0, len(headers))
	for _, h := range headers {
		data, err := s.readPart(h)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("reading %s: %v", h.Filename, err))
			return
		}
		files = append(files, indexer.File{Name: h.Filename, Data: data})
		names = append(names, h.Filename)
	}

	result, err := s.ingester.IngestFiles(ctx, files)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.recordUploads(ctx, sessionID, result)
	s.record(ctx, audit.ActionFilesUploaded, sessionID,
		fmt.Sprintf("%d of %d files ingested, %d chunks", len(result.Ingested), result.Total(), result.Chunks),
		uploadDetail(result))

	msg := "没有文件被加入知识库。"
	if len(result.Ingested) > 0 {
		msg = uploadSuccess
	}
	writeJSON(w, http.StatusOK, uploadResponse{Message: msg, Result: result, Files: names})
}

// readPart reads at most one byte past the per-file limit so oversized
// files are detected without buffering them whole.
func (s *Server) readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if s.cfg.MaxFileBytes > 0 {
		src = io.LimitReader(f, s.cfg.MaxFileBytes+1)
	}
	return io.ReadAll(src)
}

func (s *Server) recordUploads(ctx context.Context, sessionID string, result *indexer.Result) {
	record := func(f sessions.UploadedFile) {
		f.SessionID = sessionID
		if err := s.sessions.RecordFile(ctx, f); err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("recording upload failed")
		}
	}
	for _, name := range result.Ingested {
		record(sessions.UploadedFile{Name: name, Status: sessions.FileIngested})
	}
	for _, sk := range result.Skipped {
		record(sessions.UploadedFile{Name: sk.Name, Status: sessions.FileSkipped, Reason: sk.Reason})
	}
	for _, fl := range result.Failed {
		record(sessions.UploadedFile{Name: fl.Name, Status: sessions.FileFailed, Reason: fl.Error})
	}
}

func uploadDetail(result *indexer.Result) string {
	var lines []string
	for _, sk := range result.Skipped {
		lines = append(lines, sk.Name+": "+sk.Reason)
	}
	for _, fl := range result.Failed {
		lines = append(lines, fl.Name+": "+fl.Error)
	}
	return strings.Join(lines, "\n")
}

// decode reads a JSON body into v and validates it, writing a 400 on
// failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if m, ok := v.(*messageRequest); ok {
		m.Message = strings.TrimSpace(m.Message)
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, sessions.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
