// Package index holds the embedding index built once at startup over all chunks.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pdf-qa-assistant/internal/models"
)

// Embedder turns text into vectors with one fixed model.
type Embedder interface {
	ModelName() string
	EmbedText(ctx context.Context, text string) ([]float64, error)
	EmbedBatchWithProgress(ctx context.Context, chunks []models.TextChunk,
		progressFunc func(processed, total int)) ([]models.TextChunk, error)
}

// Store persists embedded chunks and answers nearest-neighbour queries.
// Search returns results by descending cosine similarity, ties by chunk position.
type Store interface {
	Reset(ctx context.Context, dimension int) error
	Add(ctx context.Context, chunks []models.TextChunk) error
	Search(ctx context.Context, vector []float64, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}

// Options tunes index construction.
type Options struct {
	// Progress is called after each chunk is embedded.
	Progress func(processed, total int)
}

// Index pairs a store with the embedder that filled it.
type Index struct {
	embedder  Embedder
	store     Store
	dimension int
	size      int
}

// Build embeds every chunk and loads them into a freshly reset store.
func Build(ctx context.Context, embedder Embedder, store Store, chunks []models.TextChunk, opts Options) (*Index, error) {
	if len(chunks) == 0 {
		return nil, models.ErrNoDocuments
	}

	// work on a copy so callers keep their chunks unmodified
	work := make([]models.TextChunk, len(chunks))
	copy(work, chunks)

	embedded, err := embedder.EmbedBatchWithProgress(ctx, work, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	dimension := len(embedded[0].Embedding)
	if dimension == 0 {
		return nil, errors.New("embedder returned empty vectors")
	}
	for _, c := range embedded {
		if len(c.Embedding) != dimension {
			return nil, fmt.Errorf("chunk %s has dimension %d, expected %d", c.ID, len(c.Embedding), dimension)
		}
	}

	if err := store.Reset(ctx, dimension); err != nil {
		return nil, fmt.Errorf("failed to reset vector store: %w", err)
	}
	if err := store.Add(ctx, embedded); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	slog.Info("index built", "chunks", len(embedded), "model", embedder.ModelName(), "dimension", dimension)

	return &Index{
		embedder:  embedder,
		store:     store,
		dimension: dimension,
		size:      len(embedded),
	}, nil
}

// Query returns the k chunks most similar to text.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error) {
	vector, err := ix.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("query embedding has dimension %d, index uses %d", len(vector), ix.dimension)
	}

	return ix.store.Search(ctx, vector, k)
}

// Model returns the embedding model the index was built with.
func (ix *Index) Model() string { return ix.embedder.ModelName() }

// Dimension returns the vector size of the index.
func (ix *Index) Dimension() int { return ix.dimension }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return ix.size }
