package indexer

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

// DefaultSeparators are tried in order, coarsest first. Sentence enders
// cover both Chinese and Latin punctuation. The empty separator is the hard
// cut of last resort.
var DefaultSeparators = []string{
	"\n\n", "\n",
	"。", "！", "？", ". ", "! ", "? ",
	"；", "; ",
	"，", ", ",
	" ", "",
}

// Splitter cuts text into overlapping chunks of at most Size characters,
// preferring the coarsest separator that keeps pieces under the limit.
// Separators stay attached to the end of the piece they close. Output is a
// pure function of the input.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

// NewSplitter returns a Splitter with DefaultSeparators.
func NewSplitter(size, overlap int) *Splitter {
	return &Splitter{Size: size, Overlap: overlap, Separators: DefaultSeparators}
}

// ChunkDocument splits text and tags every chunk with the base name of
// source. Whitespace-only text yields no chunks.
func (s *Splitter) ChunkDocument(text, source string) []vectordb.Chunk {
	parts := s.Split(text)
	if len(parts) == 0 {
		return nil
	}
	name := filepath.Base(source)
	chunks := make([]vectordb.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = vectordb.Chunk{Text: p, Source: name}
	}
	return chunks
}

// Split returns the chunk texts for text.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators())
}

func (s *Splitter) separators() []string {
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	if seps[len(seps)-1] != "" {
		seps = append(append([]string(nil), seps...), "")
	}
	return seps
}

func (s *Splitter) split(text string, seps []string) []string {
	sep := ""
	var rest []string
	for i, cand := range seps {
		if cand == "" {
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = seps[i+1:]
			break
		}
	}

	var out, small []string
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) < s.Size {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			out = append(out, s.merge(small)...)
			small = nil
		}
		if len(rest) == 0 {
			// A single rune at the hard-cut level.
			if t := strings.TrimSpace(piece); t != "" {
				out = append(out, t)
			}
			continue
		}
		out = append(out, s.split(piece, rest)...)
	}
	if len(small) > 0 {
		out = append(out, s.merge(small)...)
	}
	return out
}

// merge packs consecutive pieces into chunks. When a chunk is full, pieces
// are dropped from its front until at most Overlap characters remain, and
// those carry over as the start of the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks, cur []string
	total := 0

	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.Size && len(cur) > 0 {
			if doc := strings.TrimSpace(strings.Join(cur, "")); doc != "" {
				chunks = append(chunks, doc)
			}
			for total > s.Overlap || (total+n > s.Size && total > 0) {
				total -= runeLen(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(cur, "")); doc != "" {
		chunks = append(chunks, doc)
	}
	return chunks
}

// splitKeep splits text after each sep, so separators end their piece.
// An empty sep splits into single runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
