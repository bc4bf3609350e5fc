package intent

import (
	"encoding/json"
	"strings"
)

// ExtractObject returns the first well-formed JSON object in text. Fenced
// code blocks are searched before the surrounding prose.
func ExtractObject(text string) (string, bool) {
	for _, block := range fencedBlocks(text) {
		if obj, ok := firstObject(block); ok {
			return obj, true
		}
	}
	return firstObject(text)
}

// fencedBlocks returns the bodies of ``` fenced blocks in order. An
// unterminated fence runs to the end of text.
func fencedBlocks(text string) []string {
	var blocks []string
	for {
		start := strings.Index(text, "```")
		if start < 0 {
			return blocks
		}
		rest := text[start+3:]
		// Skip the info string, e.g. "json".
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
			rest = rest[nl+1:]
		}
		end := strings.Index(rest, "```")
		if end < 0 {
			return append(blocks, rest)
		}
		blocks = append(blocks, rest[:end])
		text = rest[end+3:]
	}
}

// firstObject scans for balanced brace spans and returns the first that
// decodes as a JSON object.
func firstObject(text string) (string, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchBrace(text, i)
		if end < 0 {
			continue
		}
		candidate := text[i : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start,
// ignoring braces inside JSON strings, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
