// Package embedtest provides a deterministic in-process Embedder for tests.
package embedtest

import (
	"context"
	"errors"
	"math"
	"sync"
)

// ErrUnavailable is returned by Embed while the embedder is set to fail.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Embedder returns deterministic embeddings based on text content.
// Shared characters contribute to the same positions, so similar texts
// produce similar vectors and identical texts produce identical ones.
type Embedder struct {
	dims int

	mu    sync.Mutex
	calls int
	fail  bool
}

// New returns an Embedder producing vectors of the given size.
func New(dims int) *Embedder {
	return &Embedder{dims: dims}
}

func (m *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	fail := m.fail
	m.mu.Unlock()

	if fail {
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = Vector(text, m.dims)
	}
	return results, nil
}

func (m *Embedder) Dimensions() int { return m.dims }
func (m *Embedder) Name() string    { return "embedtest" }

// SetFailing makes subsequent Embed calls fail with ErrUnavailable.
func (m *Embedder) SetFailing(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

// Calls returns how many times Embed has been called.
func (m *Embedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Vector produces the normalized vector for text. Empty text maps to a
// fixed unit vector so the result is always normalizable.
func Vector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	i := 0
	for _, ch := range text {
		idx := (int(ch) + i) % dims
		vec[idx] += 1.0
		i++
	}
	if i == 0 {
		vec[0] = 1
		return vec
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	for j := range vec {
		vec[j] = float32(float64(vec[j]) / norm)
	}
	return vec
}
