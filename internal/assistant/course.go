package assistant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// CourseEntry maps a keyword to a static answer.
type CourseEntry struct {
	Keyword string `json:"keyword"`
	Answer  string `json:"answer"`
}

// CourseInfo is an ordered keyword→answer table. Lookup walks it in file
// order so the first configured keyword wins.
type CourseInfo struct {
	entries []CourseEntry
}

// NewCourseInfo builds a table from entries in the given order.
func NewCourseInfo(entries ...CourseEntry) *CourseInfo {
	return &CourseInfo{entries: entries}
}

// LoadCourseInfo reads a JSON object of keyword → answer. A missing file
// yields an empty table.
func LoadCourseInfo(path string) (*CourseInfo, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &CourseInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading course info: %w", err)
	}
	return ParseCourseInfo(data)
}

// ParseCourseInfo decodes a JSON object keeping its key order.
func ParseCourseInfo(data []byte) (*CourseInfo, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing course info: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing course info: expected a JSON object")
	}

	info := &CourseInfo{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing course info: %w", err)
		}
		key := tok.(string)

		var answer string
		if err := dec.Decode(&answer); err != nil {
			return nil, fmt.Errorf("parsing course info %q: %w", key, err)
		}
		if key == "" {
			continue
		}
		info.entries = append(info.entries, CourseEntry{Keyword: key, Answer: answer})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing course info: %w", err)
	}
	return info, nil
}

// Lookup returns the answer of the first keyword contained in message.
func (c *CourseInfo) Lookup(message string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, e := range c.entries {
		if strings.Contains(message, e.Keyword) {
			return e.Answer, true
		}
	}
	return "", false
}

// Entries returns the table in lookup order.
func (c *CourseInfo) Entries() []CourseEntry {
	if c == nil {
		return nil
	}
	return append([]CourseEntry(nil), c.entries...)
}

// Len returns the number of keywords.
func (c *CourseInfo) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}
