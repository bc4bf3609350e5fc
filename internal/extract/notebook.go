package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

type notebook struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// notebookText joins the sources of markdown and code cells. Outputs are
// ignored.
func notebookText(data []byte) (string, error) {
	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return "", fmt.Errorf("parse notebook: %w", err)
	}

	var texts []string
	for _, cell := range nb.Cells {
		if cell.CellType != "markdown" && cell.CellType != "code" {
			continue
		}
		src, err := cellSource(cell.Source)
		if err != nil {
			return "", err
		}
		texts = append(texts, src)
	}
	return strings.Join(texts, "\n"), nil
}

// cellSource accepts both the string and the list-of-lines encodings.
func cellSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", fmt.Errorf("parse cell source: %w", err)
	}
	return strings.Join(lines, ""), nil
}
