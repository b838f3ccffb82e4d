package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-assistant/internal/models"
)

func newTestLLM(t *testing.T, handler http.HandlerFunc) *OllamaLLM {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOllamaLLM(srv.URL, "deepseek-r1")
	require.NoError(t, err)
	return o
}

func TestOllamaLLM_Generate(t *testing.T) {
	o := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-r1", req["model"])
		assert.Equal(t, "Answer this question directly: hi", req["prompt"])

		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"response":"<think>hmm</think>","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"Hello","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":" there","done":true}` + "\n"))
	})

	out, err := o.Generate(context.Background(), DirectPrompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out)
	assert.Equal(t, "deepseek-r1", o.ModelName())
}

func TestOllamaLLM_GenerateError(t *testing.T) {
	o := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	})

	_, err := o.Generate(context.Background(), "q")

	var invErr *models.ModelInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "generate", invErr.Op)
	assert.Equal(t, "deepseek-r1", invErr.Model)
	assert.ErrorContains(t, err, "model not found")
}

func TestOllamaLLM_CheckModels(t *testing.T) {
	o := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[{"name":"deepseek-r1:latest"},{"name":"all-minilm:latest"}]}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	assert.NoError(t, o.CheckModels(ctx, "deepseek-r1", "all-minilm"))

	err := o.CheckModels(ctx, "deepseek-r1", "llama3")
	assert.ErrorContains(t, err, "llama3")
}

func TestStripThinking(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain answer", "plain answer"},
		{"<think>\nreasoning\n</think>\n\nParis", "Paris"},
		{"  <think>a</think>one <think>b</think>two  ", "one two"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, StripThinking(tc.in))
	}
}

type stubGenerator struct {
	prompts []string
	answer  string
	err     error
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.answer, s.err
}

type stubSearcher struct {
	results []models.ScoredChunk
	err     error
	gotK    int
}

func (s *stubSearcher) Query(_ context.Context, _ string, k int) ([]models.ScoredChunk, error) {
	s.gotK = k
	return s.results, s.err
}

func chunk(id, source string, page int, content string) models.TextChunk {
	return models.TextChunk{
		ID:       id,
		Content:  content,
		Metadata: models.Metadata{Source: source, PageNumber: page},
	}
}

func TestRetrievalQA_AnswerWithContext(t *testing.T) {
	searcher := &stubSearcher{results: []models.ScoredChunk{
		{Chunk: chunk("a", "geo.pdf", 2, "Paris is the capital of France."), Score: 0.9},
		{Chunk: chunk("b", "geo.pdf", 3, "Berlin is the capital of Germany."), Score: 0.5},
	}}
	gen := &stubGenerator{answer: "Paris"}
	qa := NewRetrievalQA(searcher, gen, 0)

	answer, chunks, err := qa.AnswerWithContext(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)
	assert.Equal(t, DefaultTopK, searcher.gotK)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].ID)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Context 1 [geo.pdf, Page: 2]:\nParis is the capital of France.")
	assert.Contains(t, prompt, "Context 2 [geo.pdf, Page: 3]:")
	assert.True(t, strings.HasSuffix(prompt, "Question: What is the capital of France?\nHelpful Answer: "))
}

func TestRetrievalQA_Errors(t *testing.T) {
	t.Run("retrieval", func(t *testing.T) {
		qa := NewRetrievalQA(&stubSearcher{err: errors.New("store down")}, &stubGenerator{}, 2)
		_, chunks, err := qa.AnswerWithContext(context.Background(), "q")
		assert.ErrorContains(t, err, "store down")
		assert.Nil(t, chunks)
	})

	t.Run("generation", func(t *testing.T) {
		searcher := &stubSearcher{results: []models.ScoredChunk{{Chunk: chunk("a", "x.pdf", 1, "text")}}}
		qa := NewRetrievalQA(searcher, &stubGenerator{err: errors.New("timeout")}, 2)
		_, chunks, err := qa.AnswerWithContext(context.Background(), "q")
		assert.ErrorContains(t, err, "timeout")
		assert.Len(t, chunks, 1)
	})
}

func TestDirectAnswerer(t *testing.T) {
	gen := &stubGenerator{answer: "I cannot predict the weather."}
	d := NewDirectAnswerer(gen, "deepseek-r1")

	out, err := d.AnswerWithoutContext(context.Background(), "Will it rain tomorrow?")
	require.NoError(t, err)
	assert.Equal(t, "I cannot predict the weather.", out)
	assert.Equal(t, []string{"Answer this question directly: Will it rain tomorrow?"}, gen.prompts)
}

func TestDirectAnswerer_WrapsErrors(t *testing.T) {
	d := NewDirectAnswerer(&stubGenerator{err: errors.New("connection refused")}, "deepseek-r1")

	_, err := d.AnswerWithoutContext(context.Background(), "q")

	var invErr *models.ModelInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "deepseek-r1", invErr.Model)
	assert.ErrorContains(t, err, "connection refused")
}
