package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"pdf-qa-assistant/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaEmbedder generates embeddings using Ollama API
type OllamaEmbedder struct {
	Client        *api.Client
	Model         string
	MaxRetries    int
	Timeout       time.Duration
	MaxConcurrent int
	RetryDelay    time.Duration
}

// NewOllamaEmbedder creates a new Ollama embedder.
// An empty host falls back to OLLAMA_HOST.
func NewOllamaEmbedder(host string, model string) (*OllamaEmbedder, error) {
	client, err := NewClient(host)
	if err != nil {
		return nil, err
	}

	return &OllamaEmbedder{
		Client:        client,
		Model:         model,
		MaxRetries:    3,
		Timeout:       time.Second * 30,
		MaxConcurrent: 3, // Limit concurrent requests based on hardware
		RetryDelay:    time.Second,
	}, nil
}

// NewClient builds an Ollama API client for host, or for OLLAMA_HOST when host is empty
func NewClient(host string) (*api.Client, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}
	return api.NewClient(hostURL, http.DefaultClient), nil
}

// ModelName returns the embedding model identifier
func (e *OllamaEmbedder) ModelName() string {
	return e.Model
}

// EmbedText generates an embedding for a text
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64
	var err error

	// Implement retry logic
	for retries := 0; retries <= e.MaxRetries; retries++ {
		if retries > 0 {
			select {
			case <-ctx.Done():
				return nil, e.invocationError(ctx.Err())
			case <-time.After(time.Duration(retries) * e.RetryDelay):
			}
		}

		embedding, err = e.createEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
	}

	return nil, e.invocationError(fmt.Errorf("failed to create embedding after %d retries: %w", e.MaxRetries, err))
}

func (e *OllamaEmbedder) invocationError(err error) error {
	return &models.ModelInvocationError{Op: "embed", Model: e.Model, Err: err}
}

// createEmbedding is a helper function to create a single embedding
func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float64, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	// Create a context with timeout
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("model %s returned an empty embedding", e.Model)
	}

	return resp.Embedding, nil
}

// EmbedBatchWithProgress generates embeddings with progress reporting
func (e *OllamaEmbedder) EmbedBatchWithProgress(ctx context.Context, chunks []models.TextChunk,
	progressFunc func(processed, total int)) ([]models.TextChunk, error) {
	return embedConcurrently(ctx, e, e.MaxConcurrent, chunks, progressFunc)
}

// embedConcurrently fills in chunk embeddings using at most maxConcurrent goroutines
func embedConcurrently(ctx context.Context, e interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}, maxConcurrent int, chunks []models.TextChunk, progressFunc func(processed, total int)) ([]models.TextChunk, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrent)

	// Create a mutex to protect access to the chunks slice and progress counter
	var mu sync.Mutex
	processed := 0
	total := len(chunks)

	// Track errors
	errChan := make(chan error, total)

	for i := range chunks {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{} // Acquire semaphore

		go func(i int) {
			defer func() {
				wg.Done()
				<-semaphore
			}() // Release semaphore

			embedding, err := e.EmbedText(ctx, chunks[i].Content)
			if err != nil {
				errChan <- fmt.Errorf("failed to embed chunk %d: %w", chunks[i].Metadata.Position, err)
				cancel()
				return
			}

			mu.Lock()
			chunks[i].Embedding = embedding
			processed++
			if progressFunc != nil {
				progressFunc(processed, total)
			}
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil && processed < total {
		return nil, err
	}

	return chunks, nil
}
