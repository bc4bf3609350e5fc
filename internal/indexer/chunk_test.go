package indexer

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

// lecture builds a long, non-repeating mixed-language document.
func lecture(paragraphs int) string {
	var sb strings.Builder
	for p := 0; p < paragraphs; p++ {
		for s := 0; s < 6; s++ {
			fmt.Fprintf(&sb, "第%d段第%d句讨论梯度下降与学习率的关系。Sentence %d.%d covers topic %d in detail. ", p, s, p, s, p*7+s)
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// offsets locates each chunk in text, searching forward from the previous
// chunk's start.
func offsets(t *testing.T, text string, chunks []string) []int {
	t.Helper()
	var out []int
	from := 0
	for i, c := range chunks {
		idx := strings.Index(text[from:], c)
		if idx < 0 {
			t.Fatalf("chunk %d not found in source after offset %d: %q", i, from, c)
		}
		out = append(out, from+idx)
		from += idx + 1
	}
	return out
}

func TestSplit_SizeAndOverlapBounds(t *testing.T) {
	tests := []struct {
		size, overlap int
	}{
		{1024, 128},
		{200, 40},
		{80, 16},
	}
	text := lecture(30)

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.size, tt.overlap), func(t *testing.T) {
			chunks := NewSplitter(tt.size, tt.overlap).Split(text)
			if len(chunks) < 2 {
				t.Fatalf("expected multiple chunks, got %d", len(chunks))
			}

			for i, c := range chunks {
				if n := utf8.RuneCountInString(c); n > tt.size {
					t.Errorf("chunk %d has %d runes, max %d", i, n, tt.size)
				}
				if strings.TrimSpace(c) != c || c == "" {
					t.Errorf("chunk %d is not trimmed: %q", i, c)
				}
			}

			starts := offsets(t, text, chunks)
			for i := 1; i < len(chunks); i++ {
				prevEnd := starts[i-1] + len(chunks[i-1])
				if overlapBytes := prevEnd - starts[i]; overlapBytes > 0 {
					overlap := utf8.RuneCountInString(text[starts[i]:prevEnd])
					if overlap > tt.overlap {
						t.Errorf("chunks %d/%d overlap by %d runes, max %d", i-1, i, overlap, tt.overlap)
					}
				}
			}
		})
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := lecture(10)
	s := NewSplitter(300, 50)
	a := s.Split(text)
	b := s.Split(text)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs", i)
		}
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s := NewSplitter(100, 10)
	for _, in := range []string{"", "   ", "\n\n\t\n"} {
		if got := s.Split(in); len(got) != 0 {
			t.Errorf("Split(%q) = %v, want no chunks", in, got)
		}
		if got := s.ChunkDocument(in, "a.txt"); got != nil {
			t.Errorf("ChunkDocument(%q) = %v, want nil", in, got)
		}
	}
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	got := NewSplitter(1024, 128).Split("  课程介绍：本课程共十六周。  ")
	if len(got) != 1 || got[0] != "课程介绍：本课程共十六周。" {
		t.Errorf("Split = %q", got)
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("a", 40)
	para2 := strings.Repeat("b", 40)
	got := NewSplitter(60, 0).Split(para1 + "\n\n" + para2)
	if len(got) != 2 || got[0] != para1 || got[1] != para2 {
		t.Errorf("expected paragraph split, got %q", got)
	}
}

func TestSplit_PrefersSentenceBoundaries(t *testing.T) {
	text := "第一句话比较长一些内容。第二句话也比较长一些。第三句话同样很长一些。"
	got := NewSplitter(15, 0).Split(text)
	want := []string{"第一句话比较长一些内容。", "第二句话也比较长一些。", "第三句话同样很长一些。"}
	if len(got) != len(want) {
		t.Fatalf("Split = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplit_HardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("x", 95)
	got := NewSplitter(20, 5).Split(text)
	for i, c := range got {
		if len(c) > 20 {
			t.Errorf("chunk %d too long: %d", i, len(c))
		}
	}
	if got[0] != strings.Repeat("x", 20) {
		t.Errorf("first chunk = %q", got[0])
	}
	// Each chunk after the first adds 15 new runes behind a 5-rune overlap.
	if len(got) != 6 {
		t.Errorf("expected 6 chunks, got %d", len(got))
	}
}

func TestChunkDocument_TagsSource(t *testing.T) {
	chunks := NewSplitter(30, 5).ChunkDocument(lecture(2), "/tmp/uploads/week1.pdf")
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	for i, c := range chunks {
		if c.Source != "week1.pdf" {
			t.Errorf("chunk %d source = %q", i, c.Source)
		}
		if c.Text == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}
