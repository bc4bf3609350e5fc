package sessions

import (
	"time"

	"github.com/ziadkadry99/course-assistant/internal/llm"
)

// Session is one conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a stored conversation turn.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStatus is the ingestion outcome recorded for an uploaded file.
type FileStatus string

const (
	FileIngested FileStatus = "ingested"
	FileSkipped  FileStatus = "skipped"
	FileFailed   FileStatus = "failed"
)

// UploadedFile records a file uploaded into a session.
type UploadedFile struct {
	SessionID string     `json:"session_id"`
	Name      string     `json:"name"`
	Status    FileStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Detail is a session with its messages and files.
type Detail struct {
	Session
	Messages []Message      `json:"messages"`
	Files    []UploadedFile `json:"files"`
}
