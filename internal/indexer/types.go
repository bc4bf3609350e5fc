package indexer

import "time"

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// Skip reasons reported in Result.Skipped.
const (
	ReasonUnsupported = "unsupported file type"
	ReasonTooLarge    = "file too large"
	ReasonEmpty       = "no extractable text"
)

// SkippedFile is a file left out of the index without an error.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FailedFile is a file whose chunks could not be embedded or stored.
type FailedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Result summarizes an ingestion batch. A batch succeeds partially: every
// file lands in exactly one of Ingested, Skipped or Failed.
type Result struct {
	Ingested []string      `json:"ingested"`
	Skipped  []SkippedFile `json:"skipped"`
	Failed   []FailedFile  `json:"failed"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration_ns"`
}

// Total returns the number of files the batch considered.
func (r *Result) Total() int {
	return len(r.Ingested) + len(r.Skipped) + len(r.Failed)
}

// ProgressFunc is called after each file to report progress.
type ProgressFunc func(processed int, total int, currentFile string)
