package relevance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-assistant/internal/embedding"
	"pdf-qa-assistant/internal/models"
)

type tableEmbedder struct {
	vectors map[string][]float64
	calls   int
	err     error
}

func (e *tableEmbedder) EmbedText(_ context.Context, text string) ([]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

func chunks(contents ...string) []models.TextChunk {
	out := make([]models.TextChunk, len(contents))
	for i, c := range contents {
		out[i] = models.TextChunk{ID: c, Content: c}
	}
	return out
}

func TestGate_EmptyChunksShortCircuit(t *testing.T) {
	e := &tableEmbedder{}
	g := NewGate(e)

	ok, score, err := g.IsRelevant(context.Background(), "anything", nil, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, score)
	assert.Zero(t, e.calls, "no embedding may be computed for an empty chunk list")
}

func TestGate_MaxAcrossChunks(t *testing.T) {
	e := &tableEmbedder{vectors: map[string][]float64{
		"q":    {1, 0, 0},
		"far":  {0, 1, 0},
		"near": {1, 1, 0},
	}}
	g := NewGate(e)

	ok, score, err := g.IsRelevant(context.Background(), "q", chunks("far", "near"), 0.5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 0.7071, score, 1e-3)
	assert.Equal(t, 3, e.calls)
}

func TestGate_StrictThreshold(t *testing.T) {
	e := &tableEmbedder{vectors: map[string][]float64{
		"q": {1, 0},
		"c": {1, 0},
	}}
	g := NewGate(e)

	ok, score, err := g.IsRelevant(context.Background(), "q", chunks("c"), 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.False(t, ok, "similarity equal to the threshold is not relevant")
}

func TestGate_Monotonic(t *testing.T) {
	e := &tableEmbedder{vectors: map[string][]float64{
		"q": {1, 0, 0},
		"a": {1, 2, 0},
		"b": {3, 1, 1},
	}}
	g := NewGate(e)
	ctx := context.Background()

	prev := true
	for _, th := range []float64{-1, 0, 0.2, 0.4, 0.6, 0.8, 0.9, 1} {
		ok, _, err := g.IsRelevant(ctx, "q", chunks("a", "b"), th)
		require.NoError(t, err)
		if !prev {
			assert.False(t, ok, "raising the threshold must never make context relevant again (threshold %.1f)", th)
		}
		prev = ok
	}
}

func TestGate_EmbedError(t *testing.T) {
	g := NewGate(&tableEmbedder{err: errors.New("backend down")})

	ok, _, err := g.IsRelevant(context.Background(), "q", chunks("c"), 0.4)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "backend down")
}

func TestGate_HashEmbedder(t *testing.T) {
	g := NewGate(embedding.NewHashEmbedder(0))
	ctx := context.Background()
	corpus := chunks("Paris is the capital of France.", "The contract term is twelve months.")

	ok, _, err := g.IsRelevant(ctx, "What is the capital of France?", corpus, DefaultThreshold)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = g.IsRelevant(ctx, "Will it rain tomorrow?", corpus, DefaultThreshold)
	require.NoError(t, err)
	assert.False(t, ok)
}
