// Package relevance decides whether retrieved chunks are trustworthy enough to ground an answer.
package relevance

import (
	"context"
	"fmt"
	"log/slog"

	"pdf-qa-assistant/internal/embedding"
	"pdf-qa-assistant/internal/models"
)

// DefaultThreshold is the minimum best similarity for context to be used
const DefaultThreshold = 0.4

// TextEmbedder embeds a single string
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// Gate re-scores question/chunk similarity independently of the retriever's ranking
type Gate struct {
	embedder TextEmbedder
}

// NewGate creates a relevance gate using embedder
func NewGate(embedder TextEmbedder) *Gate {
	return &Gate{embedder: embedder}
}

// IsRelevant reports whether the best similarity between question and any chunk
// is strictly above threshold. It also returns that best similarity.
// An empty chunk list is never relevant and embeds nothing.
func (g *Gate) IsRelevant(ctx context.Context, question string, chunks []models.TextChunk, threshold float64) (bool, float64, error) {
	if len(chunks) == 0 {
		return false, 0, nil
	}

	qVec, err := g.embedder.EmbedText(ctx, question)
	if err != nil {
		return false, 0, fmt.Errorf("failed to embed question: %w", err)
	}

	best, err := MaxSimilarity(ctx, g.embedder, qVec, chunks)
	if err != nil {
		return false, best, err
	}

	slog.Debug("relevance scored", "chunks", len(chunks), "max_similarity", best, "threshold", threshold)

	return best > threshold, best, nil
}

// MaxSimilarity embeds every chunk and returns the highest cosine similarity to qVec
func MaxSimilarity(ctx context.Context, embedder TextEmbedder, qVec []float64, chunks []models.TextChunk) (float64, error) {
	best := -1.0
	for _, c := range chunks {
		cVec, err := embedder.EmbedText(ctx, c.Content)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %s: %w", c.ID, err)
		}

		sim, err := embedding.CosineSimilarity(qVec, cVec)
		if err != nil {
			return 0, err
		}
		if sim > best {
			best = sim
		}
	}
	return best, nil
}
