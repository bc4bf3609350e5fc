package sessions

import (
	"context"
	"errors"
	"testing"

	"github.com/ziadkadry99/course-assistant/internal/db"
	"github.com/ziadkadry99/course-assistant/internal/llm"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestCreateSessionDefaultTitles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	second, err := store.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	named, err := store.CreateSession(ctx, "期末复习")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if first.Title != "会话1" || second.Title != "会话2" {
		t.Errorf("titles = %q, %q; want 会话1, 会话2", first.Title, second.Title)
	}
	if named.Title != "期末复习" {
		t.Errorf("title = %q", named.Title)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Error("expected distinct non-empty IDs")
	}

	list, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 sessions, got %d", len(list))
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetSession(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendAndHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sess, _ := store.CreateSession(ctx, "")

	turns := []llm.Message{
		{Role: llm.RoleUser, Content: "你好"},
		{Role: llm.RoleAssistant, Content: "您好！"},
		{Role: llm.RoleUser, Content: "梯度下降是什么？"},
	}
	for i, m := range turns {
		stored, err := store.AppendMessage(ctx, sess.ID, m, "GENERAL_QA")
		if err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
		if stored.Seq != i+1 {
			t.Errorf("message %d seq = %d", i, stored.Seq)
		}
	}

	history, err := store.History(ctx, sess.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != len(turns) {
		t.Fatalf("expected %d messages, got %d", len(turns), len(history))
	}
	for i := range turns {
		if history[i] != turns[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, history[i], turns[i])
		}
	}

	messages, err := store.Messages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if messages[0].Intent != "GENERAL_QA" {
		t.Errorf("intent = %q", messages[0].Intent)
	}
}

func TestAppendToUnknownSession(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.AppendMessage(context.Background(), "missing", llm.Message{Role: llm.RoleUser, Content: "hi"}, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendTurn(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sess, _ := store.CreateSession(ctx, "")

	for i := 0; i < 2; i++ {
		err := store.AppendTurn(ctx, sess.ID,
			llm.Message{Role: llm.RoleUser, Content: "question"},
			llm.Message{Role: llm.RoleAssistant, Content: "answer"},
			"GENERAL_QA",
		)
		if err != nil {
			t.Fatalf("AppendTurn %d: %v", i, err)
		}
	}

	messages, err := store.Messages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	for i, m := range messages {
		want := llm.RoleUser
		if i%2 == 1 {
			want = llm.RoleAssistant
		}
		if m.Seq != i+1 || m.Role != want || m.Intent != "GENERAL_QA" {
			t.Errorf("message %d = seq %d role %s intent %q", i, m.Seq, m.Role, m.Intent)
		}
	}
}

func TestAppendTurnIsAtomic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sess, _ := store.CreateSession(ctx, "")

	// The schema rejects the unknown role, failing the second insert.
	err := store.AppendTurn(ctx, sess.ID,
		llm.Message{Role: llm.RoleUser, Content: "question"},
		llm.Message{Role: llm.Role("narrator"), Content: "answer"},
		"",
	)
	if err == nil {
		t.Fatal("expected AppendTurn to fail")
	}

	messages, err := store.Messages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("a failed turn must leave no messages, got %d", len(messages))
	}

	if err := store.AppendTurn(context.Background(), "missing",
		llm.Message{Role: llm.RoleUser, Content: "q"},
		llm.Message{Role: llm.RoleAssistant, Content: "a"}, "",
	); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryIsPerSession(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	a, _ := store.CreateSession(ctx, "")
	b, _ := store.CreateSession(ctx, "")

	store.AppendMessage(ctx, a.ID, llm.Message{Role: llm.RoleUser, Content: "a1"}, "")
	store.AppendMessage(ctx, b.ID, llm.Message{Role: llm.RoleUser, Content: "b1"}, "")
	store.AppendMessage(ctx, a.ID, llm.Message{Role: llm.RoleAssistant, Content: "a2"}, "")

	history, _ := store.History(ctx, a.ID)
	if len(history) != 2 || history[0].Content != "a1" || history[1].Content != "a2" {
		t.Errorf("unexpected history for a: %+v", history)
	}
	history, _ = store.History(ctx, b.ID)
	if len(history) != 1 || history[0].Content != "b1" {
		t.Errorf("unexpected history for b: %+v", history)
	}
}

func TestClearHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sess, _ := store.CreateSession(ctx, "")
	store.AppendMessage(ctx, sess.ID, llm.Message{Role: llm.RoleUser, Content: "x"}, "")

	if err := store.ClearHistory(ctx, sess.ID); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}

	history, err := store.History(ctx, sess.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d", len(history))
	}

	// Sequence restarts after clearing.
	m, err := store.AppendMessage(ctx, sess.ID, llm.Message{Role: llm.RoleUser, Content: "y"}, "")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if m.Seq != 1 {
		t.Errorf("seq after clear = %d, want 1", m.Seq)
	}

	if err := store.ClearHistory(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sess, _ := store.CreateSession(ctx, "")
	store.AppendMessage(ctx, sess.ID, llm.Message{Role: llm.RoleUser, Content: "x"}, "")
	store.RecordFile(ctx, UploadedFile{SessionID: sess.ID, Name: "a.pdf", Status: FileIngested})

	if err := store.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := store.GetSession(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	var orphans int
	store.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&orphans)
	if orphans != 0 {
		t.Errorf("expected messages to cascade, %d left", orphans)
	}

	if err := store.DeleteSession(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestFilesAndDetail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sess, _ := store.CreateSession(ctx, "")

	store.RecordFile(ctx, UploadedFile{SessionID: sess.ID, Name: "week1.md", Status: FileIngested})
	store.RecordFile(ctx, UploadedFile{SessionID: sess.ID, Name: "slides.pptx", Status: FileSkipped, Reason: "unsupported file type"})
	store.AppendMessage(ctx, sess.ID, llm.Message{Role: llm.RoleUser, Content: "hi"}, "")

	detail, err := store.Detail(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if len(detail.Files) != 2 || detail.Files[0].Name != "week1.md" || detail.Files[1].Status != FileSkipped {
		t.Errorf("unexpected files: %+v", detail.Files)
	}
	if len(detail.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(detail.Messages))
	}
	if detail.Title != "会话1" {
		t.Errorf("title = %q", detail.Title)
	}
}
