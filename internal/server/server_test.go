package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/course-assistant/internal/assistant"
	"github.com/ziadkadry99/course-assistant/internal/audit"
	"github.com/ziadkadry99/course-assistant/internal/db"
	"github.com/ziadkadry99/course-assistant/internal/embeddings/embedtest"
	"github.com/ziadkadry99/course-assistant/internal/indexer"
	"github.com/ziadkadry99/course-assistant/internal/intent"
	"github.com/ziadkadry99/course-assistant/internal/llm"
	"github.com/ziadkadry99/course-assistant/internal/sessions"
	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

// echoAssistant answers every message with its own text and remembers the
// history it was given.
type echoAssistant struct {
	mu        sync.Mutex
	histories [][]llm.Message
}

func (e *echoAssistant) Answer(ctx context.Context, history []llm.Message, userText string) assistant.Reply {
	e.mu.Lock()
	e.histories = append(e.histories, history)
	e.mu.Unlock()

	answer := "echo: " + userText
	return assistant.Reply{
		Answer:               answer,
		Intent:               intent.GeneralQA,
		RecommendedQuestions: []string{},
		History: append(append([]llm.Message{}, history...),
			llm.Message{Role: llm.RoleUser, Content: userText},
			llm.Message{Role: llm.RoleAssistant, Content: answer}),
	}
}

type testEnv struct {
	srv   *Server
	store *sessions.Store
	audit *audit.Store
	index *vectordb.ChromemIndex
	echo  *echoAssistant
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	idx := vectordb.NewChromemIndex(filepath.Join(t.TempDir(), "db"), "course_docs", false, embedtest.New(32))
	if err := idx.LoadOrInit(context.Background()); err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	pipeline := indexer.NewPipeline(idx, indexer.NewSplitter(200, 20), 1024)

	store := sessions.NewStore(database)
	echo := &echoAssistant{}
	srv := New(Config{Port: 0, MaxFileBytes: 1024}, echo, store, pipeline, idx)
	trail := audit.NewStore(database)
	srv.SetAuditor(trail)
	audit.RegisterRoutes(srv.Router(), trail)
	return &testEnv{srv: srv, store: store, audit: trail, index: idx, echo: echo}
}

func (e *testEnv) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, "GET", "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	env := setupServer(t)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, "POST", "/api/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sess sessions.Session
	decodeBody(t, w, &sess)
	if sess.Title != "会话1" {
		t.Errorf("title = %q, want 会话1", sess.Title)
	}

	w = env.do(t, "POST", "/api/sessions", `{"title":"复习"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create titled: expected 201, got %d", w.Code)
	}

	w = env.do(t, "GET", "/api/sessions", "")
	var list []sessions.Session
	decodeBody(t, w, &list)
	if len(list) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(list))
	}

	w = env.do(t, "GET", "/api/sessions/"+sess.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	w = env.do(t, "DELETE", "/api/sessions/"+sess.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	w = env.do(t, "GET", "/api/sessions/"+sess.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", w.Code)
	}
}

func TestMessagePersistsBothTurns(t *testing.T) {
	env := setupServer(t)
	sess, _ := env.store.CreateSession(context.Background(), "")
	path := "/api/sessions/" + sess.ID + "/message"

	w := env.do(t, "POST", path, `{"message":"你好"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp messageResponse
	decodeBody(t, w, &resp)
	if resp.Answer != "echo: 你好" || resp.Intent != "GENERAL_QA" {
		t.Errorf("unexpected response: %+v", resp)
	}

	env.do(t, "POST", path, `{"message":"  第二个问题  "}`)

	if len(env.echo.histories) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(env.echo.histories))
	}
	if len(env.echo.histories[0]) != 0 {
		t.Errorf("first turn should see empty history, got %+v", env.echo.histories[0])
	}
	second := env.echo.histories[1]
	if len(second) != 2 || second[0].Content != "你好" || second[1].Content != "echo: 你好" {
		t.Errorf("second turn history = %+v", second)
	}

	history, _ := env.store.History(context.Background(), sess.ID)
	if len(history) != 4 || history[2].Content != "第二个问题" {
		t.Errorf("stored history = %+v", history)
	}

	w = env.do(t, "DELETE", "/api/sessions/"+sess.ID+"/messages", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear: expected 204, got %d", w.Code)
	}
	history, _ = env.store.History(context.Background(), sess.ID)
	if len(history) != 0 {
		t.Errorf("expected cleared history, got %d", len(history))
	}
}

func TestMessageValidation(t *testing.T) {
	env := setupServer(t)
	sess, _ := env.store.CreateSession(context.Background(), "")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"empty message", "/api/sessions/" + sess.ID + "/message", `{"message":"   "}`, http.StatusBadRequest},
		{"bad json", "/api/sessions/" + sess.ID + "/message", `{"message":`, http.StatusBadRequest},
		{"too long", "/api/sessions/" + sess.ID + "/message", `{"message":"` + strings.Repeat("a", 8001) + `"}`, http.StatusBadRequest},
		{"unknown session", "/api/sessions/missing/message", `{"message":"hi"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
	if len(env.echo.histories) != 0 {
		t.Error("invalid requests must not reach the assistant")
	}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadPartialSuccess(t *testing.T) {
	env := setupServer(t)
	sess, _ := env.store.CreateSession(context.Background(), "")

	body, contentType := multipartBody(t, map[string]string{
		"week1.md":    "# Week 1\n\nLinear regression fits a line to data.",
		"slides.pptx": "binary",
		"huge.txt":    strings.Repeat("x", 2048),
	})
	req := httptest.NewRequest("POST", "/api/sessions/"+sess.ID+"/files", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp uploadResponse
	decodeBody(t, w, &resp)
	if resp.Message != uploadSuccess {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.Result.Ingested) != 1 || resp.Result.Ingested[0] != "week1.md" {
		t.Errorf("ingested = %v", resp.Result.Ingested)
	}
	if len(resp.Result.Skipped) != 2 {
		t.Errorf("skipped = %+v", resp.Result.Skipped)
	}
	if !env.index.Exists() || env.index.Count() == 0 {
		t.Error("index should be non-empty after upload")
	}

	files, _ := env.store.Files(context.Background(), sess.ID)
	if len(files) != 3 {
		t.Errorf("expected 3 recorded files, got %d", len(files))
	}

	w = env.do(t, "GET", "/api/index", "")
	var stats vectordb.Stats
	decodeBody(t, w, &stats)
	if !stats.Exists || stats.Chunks != env.index.Count() {
		t.Errorf("stats = %+v", stats)
	}
}

func TestUploadRequiresFiles(t *testing.T) {
	env := setupServer(t)
	sess, _ := env.store.CreateSession(context.Background(), "")

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest("POST", "/api/sessions/"+sess.ID+"/files", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWebSocketChat(t *testing.T) {
	env := setupServer(t)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var errResp wsResponse
	if err := conn.ReadJSON(&errResp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if errResp.Type != "error" {
		t.Errorf("expected error frame, got %+v", errResp)
	}

	if err := conn.WriteJSON(wsRequest{Message: "你好"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "reply" || resp.SessionID == "" || resp.Reply == nil || resp.Reply.Answer != "echo: 你好" {
		t.Fatalf("unexpected reply: %+v", resp)
	}

	// Continue in the session the server created.
	if err := conn.WriteJSON(wsRequest{SessionID: resp.SessionID, Message: "再来"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var second wsResponse
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second.SessionID != resp.SessionID || len(second.Reply.History) != 4 {
		t.Errorf("unexpected second reply: %+v", second)
	}
}

func TestAuditTrail(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, "POST", "/api/sessions", "")
	var sess sessions.Session
	decodeBody(t, w, &sess)

	env.do(t, "POST", "/api/sessions/"+sess.ID+"/message", `{"message":"hello"}`)
	env.do(t, "DELETE", "/api/sessions/"+sess.ID+"/messages", "")

	w = env.do(t, "GET", "/api/audit?session="+sess.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var entries []audit.Entry
	decodeBody(t, w, &entries)

	got := map[audit.Action]bool{}
	for _, e := range entries {
		got[e.Action] = true
	}
	for _, want := range []audit.Action{audit.ActionSessionCreated, audit.ActionQuestionAnswered, audit.ActionHistoryCleared} {
		if !got[want] {
			t.Errorf("missing audit action %q in %+v", want, entries)
		}
	}
}
