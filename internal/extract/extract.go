// Package extract turns uploaded document bytes into plain text.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/phuslu/log"
)

// ErrUnsupportedType is returned for file extensions no handler understands.
var ErrUnsupportedType = errors.New("unsupported file type")

type handler func(data []byte) (string, error)

var handlers = map[string]handler{
	".txt":   plainText,
	".md":    markdownText,
	".pdf":   pdfText,
	".epub":  pdfText,
	".docx":  docxText,
	".ipynb": notebookText,
	".html":  htmlText,
	".htm":   htmlText,
}

// Extract returns the plain text of data, choosing a parser by the
// extension of filename. An unknown extension returns ErrUnsupportedType.
// A recognised but unreadable file returns "" and a nil error so the caller
// treats it as having no content to index.
func Extract(data []byte, filename string) (string, error) {
	h, ok := handlers[ext(filename)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Base(filename))
	}

	text, err := h(data)
	if err != nil {
		log.Warn().Err(err).Str("file", filepath.Base(filename)).Msg("text extraction failed")
		return "", nil
	}
	return text, nil
}

// Supported reports whether filename has an extension Extract understands.
func Supported(filename string) bool {
	_, ok := handlers[ext(filename)]
	return ok
}

// Extensions lists the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(handlers))
	for e := range handlers {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid UTF-8")
	}
	return string(data), nil
}
