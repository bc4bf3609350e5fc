// Package sessions persists chat sessions and their ordered message
// history in SQLite.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/course-assistant/internal/db"
	"github.com/ziadkadry99/course-assistant/internal/llm"
)

// ErrNotFound is returned for operations on an unknown session.
var ErrNotFound = errors.New("session not found")

// Store manages persistence of sessions, messages and uploads.
type Store struct {
	db *db.DB
}

// NewStore creates a new session store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateSession creates a session. An empty title becomes 会话N where N is
// the number of existing sessions plus one.
func (s *Store) CreateSession(ctx context.Context, title string) (*Session, error) {
	if title == "" {
		n, err := s.CountSessions(ctx)
		if err != nil {
			return nil, err
		}
		title = fmt.Sprintf("会话%d", n+1)
	}

	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &sess, nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns all sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CountSessions returns the total number of sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return count, nil
}

// DeleteSession removes a session with its messages and file records.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// AppendMessage stores msg after the last message of the session.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg llm.Message, intent string) (*Message, error) {
	stored, err := s.appendMessages(ctx, sessionID, intent, msg)
	if err != nil {
		return nil, err
	}
	return &stored[0], nil
}

// AppendTurn stores a question and its answer as consecutive messages in
// one transaction, so a turn is either fully saved or not at all.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, user, assistant llm.Message, intent string) error {
	_, err := s.appendMessages(ctx, sessionID, intent, user, assistant)
	return err
}

func (s *Store) appendMessages(ctx context.Context, sessionID, intent string, msgs ...llm.Message) ([]Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("allocating sequence: %w", err)
	}

	now := time.Now().UTC()
	stored := make([]Message, len(msgs))
	for i, msg := range msgs {
		m := Message{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Seq:       int(seq) + i,
			Role:      msg.Role,
			Content:   msg.Content,
			Intent:    intent,
			CreatedAt: now,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (id, session_id, seq, role, content, intent, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.SessionID, m.Seq, string(m.Role), m.Content, m.Intent, m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("adding message: %w", err)
		}
		stored[i] = m
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}
	return stored, nil
}

// Messages returns the stored messages of a session in order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, role, content, intent, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Seq, &role, &m.Content, &m.Intent, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = llm.Role(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// History returns the conversation of a session as chat messages.
func (s *Store) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	stored, err := s.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

// ClearHistory deletes every message of a session but keeps the session.
func (s *Store) ClearHistory(ctx context.Context, sessionID string) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// RecordFile notes the ingestion outcome of an uploaded file.
func (s *Store) RecordFile(ctx context.Context, f UploadedFile) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_files (session_id, name, status, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.SessionID, f.Name, string(f.Status), f.Reason, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording file: %w", err)
	}
	return nil
}

// Files lists the files uploaded into a session in upload order.
func (s *Store) Files(ctx context.Context, sessionID string) ([]UploadedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, name, status, reason, created_at
		 FROM session_files WHERE session_id = ? ORDER BY rowid ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	files := []UploadedFile{}
	for rows.Next() {
		var f UploadedFile
		var status string
		if err := rows.Scan(&f.SessionID, &f.Name, &status, &f.Reason, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		f.Status = FileStatus(status)
		files = append(files, f)
	}
	return files, rows.Err()
}

// Detail returns a session with its messages and uploaded files.
func (s *Store) Detail(ctx context.Context, id string) (*Detail, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := s.Files(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Session: *sess, Messages: messages, Files: files}, nil
}
