package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ziadkadry99/course-assistant/internal/embeddings/embedtest"
)

func TestToChromemFunc(t *testing.T) {
	e := embedtest.New(16)
	fn := ToChromemFunc(e)

	vec, err := fn(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 16)
	assert.Equal(t, embedtest.Vector("hello", 16), vec)
}

func TestToChromemFuncPropagatesFailure(t *testing.T) {
	e := embedtest.New(16)
	e.SetFailing(true)

	_, err := ToChromemFunc(e)(context.Background(), "hello")
	assert.True(t, errors.Is(err, embedtest.ErrUnavailable))
}

type emptyEmbedder struct{}

func (emptyEmbedder) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (emptyEmbedder) Dimensions() int                                    { return 0 }
func (emptyEmbedder) Name() string                                       { return "empty" }

func TestEmbedOneRejectsMissingVector(t *testing.T) {
	_, err := EmbedOne(context.Background(), emptyEmbedder{}, "text")
	assert.Error(t, err)
}

// fakeEmbeddingServer answers /embeddings requests with one vector per input,
// whose first component is the input index.
func fakeEmbeddingServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Object string `json:"object"`
			Data   []item `json:"data"`
			Model  string `json:"model"`
		}{Object: "list", Model: req.Model}
		for i := range req.Input {
			resp.Data = append(resp.Data, item{Object: "embedding", Index: i, Embedding: []float32{float32(i), 1, 0}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOllamaEmbedderBatches(t *testing.T) {
	calls := 0
	srv := fakeEmbeddingServer(t, &calls)
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 3, srv.URL)
	assert.Equal(t, "ollama/nomic-embed-text", e.Name())
	assert.Equal(t, 3, e.Dimensions())

	texts := make([]string, maxBatchSize+5)
	for i := range texts {
		texts[i] = "chunk"
	}
	vecs, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, len(texts))
	assert.Equal(t, 2, calls, "expected two batched requests")
	assert.Equal(t, float32(4), vecs[maxBatchSize+4][0])
}

func TestOpenAIEmbedderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("sk-test", ModelTextEmbedding3Small, srv.URL+"/v1", 0)
	assert.Equal(t, 1536, e.Dimensions())

	_, err := e.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder("sk-test", ModelTextEmbedding3Small, "http://127.0.0.1:1/v1", 0)
	vecs, err := e.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}
