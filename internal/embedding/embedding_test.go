package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-assistant/internal/models"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 1}, []float64{-1, -1}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"scaled", []float64{1, 2}, []float64{2, 4}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CosineSimilarity(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(0)
	ctx := context.Background()
	assert.Equal(t, DefaultHashDimension, e.Dimension())
	assert.Equal(t, "hash", e.ModelName())

	a, err := e.EmbedText(ctx, "Paris is the capital of France")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "Paris is the capital of France")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultHashDimension)

	q, err := e.EmbedText(ctx, "What is the capital of France?")
	require.NoError(t, err)
	related, err := CosineSimilarity(q, a)
	require.NoError(t, err)
	assert.Greater(t, related, 0.6)

	w, err := e.EmbedText(ctx, "Will it rain tomorrow? What's the weather forecast?")
	require.NoError(t, err)
	unrelated, err := CosineSimilarity(w, a)
	require.NoError(t, err)
	assert.Less(t, unrelated, 0.4)
}

func TestHashEmbedder_OnlyStopwords(t *testing.T) {
	e := NewHashEmbedder(64)
	vec, err := e.EmbedText(context.Background(), "the of and")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestHashEmbedder_BatchProgress(t *testing.T) {
	e := NewHashEmbedder(64)
	chunks := []models.TextChunk{{Content: "one"}, {Content: "two"}, {Content: "three"}}

	var calls []int
	out, err := e.EmbedBatchWithProgress(context.Background(), chunks, func(processed, total int) {
		assert.Equal(t, 3, total)
		calls = append(calls, processed)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
	for _, c := range out {
		assert.Len(t, c.Embedding, 64)
	}
}

type failingEmbedder struct{ failOn string }

func (f failingEmbedder) EmbedText(_ context.Context, text string) ([]float64, error) {
	if text == f.failOn {
		return nil, errors.New("boom")
	}
	return []float64{1}, nil
}

func TestEmbedConcurrently_Error(t *testing.T) {
	chunks := []models.TextChunk{{Content: "ok"}, {Content: "bad"}, {Content: "ok"}}
	_, err := embedConcurrently(context.Background(), failingEmbedder{failOn: "bad"}, 2, chunks, nil)
	assert.ErrorContains(t, err, "boom")
}

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *OllamaEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e, err := NewOllamaEmbedder(srv.URL, "all-minilm")
	require.NoError(t, err)
	e.RetryDelay = time.Millisecond
	return e
}

func TestOllamaEmbedder_EmbedText(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req["model"])
		assert.Equal(t, "hello", req["prompt"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	})

	vec, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "all-minilm", e.ModelName())
}

func TestOllamaEmbedder_Retries(t *testing.T) {
	var attempts atomic.Int32
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"loading model"}`))
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[1,0]}`))
	})

	vec, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, vec)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestOllamaEmbedder_GivesUp(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	})
	e.MaxRetries = 1

	_, err := e.EmbedText(context.Background(), "hello")

	var invErr *models.ModelInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "embed", invErr.Op)
	assert.Equal(t, "all-minilm", invErr.Model)
}

func TestOllamaEmbedder_EmptyEmbedding(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	})
	e.MaxRetries = 0

	_, err := e.EmbedText(context.Background(), "hello")
	assert.ErrorContains(t, err, "empty embedding")
}

func TestNewClient_InvalidHost(t *testing.T) {
	_, err := NewClient("://bad")
	assert.Error(t, err)
}
