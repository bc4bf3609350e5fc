package walker

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTree creates files (relative path -> content) under a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestWalk_BasicTraversal(t *testing.T) {
	root := writeTree(t, map[string]string{
		"syllabus.md":        "# Syllabus",
		"week1/lecture.txt":  "intro",
		"week1/notes.PDF":    "%PDF-1.4",
		"week2/lab.ipynb":    "{}",
		".hidden.md":         "secret",
		"week2/~$draft.docx": "lock",
		".git/config":        "x",
		"node_modules/a.md":  "dep",
		"week3/diagram.png":  "png",
	})

	files, err := Walk(WalkerConfig{
		RootDir:    root,
		Extensions: []string{".md", ".txt", ".pdf", ".ipynb", ".docx"},
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	want := []string{"syllabus.md", "week1/lecture.txt", "week1/notes.PDF", "week2/lab.ipynb"}
	got := relPaths(files)
	if len(got) != len(want) {
		t.Fatalf("Walk() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWalk_FileInfoFields(t *testing.T) {
	root := writeTree(t, map[string]string{"Notes.MD": "hello"})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	f := files[0]
	if f.Ext != ".md" {
		t.Errorf("Ext: got %q, want .md", f.Ext)
	}
	if f.Size != 5 {
		t.Errorf("Size: got %d, want 5", f.Size)
	}
	if !filepath.IsAbs(f.Path) {
		t.Errorf("Path should be absolute: %s", f.Path)
	}
}

func TestWalk_IncludeExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lectures/a.md":     "a",
		"lectures/b.md":     "b",
		"homework/c.md":     "c",
		"lectures/old/d.md": "d",
	})

	files, err := Walk(WalkerConfig{
		RootDir: root,
		Include: []string{"lectures/**"},
		Exclude: []string{"**/old/**"},
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	got := relPaths(files)
	if len(got) != 2 || got[0] != "lectures/a.md" || got[1] != "lectures/b.md" {
		t.Errorf("Walk() = %v", got)
	}
}

func TestWalk_NotADirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"a.md": "a"})
	if _, err := Walk(WalkerConfig{RootDir: filepath.Join(root, "a.md")}); err == nil {
		t.Error("expected error walking a file")
	}
}

func TestHasExtension(t *testing.T) {
	allowed := []string{".pdf", ".md"}
	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true},
		{".PDF", true},
		{".md", true},
		{".exe", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasExtension(tt.ext, allowed); got != tt.want {
			t.Errorf("HasExtension(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
	if !HasExtension(".anything", nil) {
		t.Error("empty allow list should accept everything")
	}
}

func TestMatchesInclude_Empty(t *testing.T) {
	if !MatchesInclude("anything.md", nil) {
		t.Error("empty include should match everything")
	}
}

func TestMatchesExclude_Empty(t *testing.T) {
	if MatchesExclude("anything.md", nil) {
		t.Error("empty exclude should match nothing")
	}
}

func TestMatchesInclude_DoubleStarPattern(t *testing.T) {
	if !MatchesInclude("week1/slides/deck.pdf", []string{"**/*.pdf"}) {
		t.Error("**/*.pdf should match nested pdf")
	}
	if !MatchesInclude("deck.pdf", []string{"*.pdf"}) {
		t.Error("*.pdf should match base name")
	}
}
