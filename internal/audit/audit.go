// Package audit keeps a trail of what happened to sessions and to the
// knowledge base: sessions opened and removed, uploads, answered questions.
package audit

import "time"

// Action describes what was done.
type Action string

const (
	ActionSessionCreated   Action = "session_created"
	ActionSessionDeleted   Action = "session_deleted"
	ActionHistoryCleared   Action = "history_cleared"
	ActionFilesUploaded    Action = "files_uploaded"
	ActionQuestionAnswered Action = "question_answered"
)

// Entry is a single audit trail record. SessionID is kept as plain text so
// entries outlive the session they describe.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	SessionID string    `json:"session_id,omitempty"`
	Summary   string    `json:"summary"`
	Detail    string    `json:"detail,omitempty"`
}
