package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"pdf-qa-assistant/internal/models"
)

// DefaultHashDimension is the vector size of the offline embedder
const DefaultHashDimension = 512

// HashEmbedder is an offline bag-of-words embedder using feature hashing.
// It needs no model server and is deterministic, which makes it suitable for
// tests and for running without Ollama.
type HashEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewHashEmbedder creates a hashing embedder with the given dimension
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

// ModelName returns the embedder identifier
func (e *HashEmbedder) ModelName() string { return "hash" }

// Dimension returns the vector size
func (e *HashEmbedder) Dimension() int { return e.dimension }

// EmbedText returns the L2-normalized hashed term counts of text
func (e *HashEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dimension)
	for _, tok := range e.tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimension)]++
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatchWithProgress embeds every chunk sequentially
func (e *HashEmbedder) EmbedBatchWithProgress(ctx context.Context, chunks []models.TextChunk,
	progressFunc func(processed, total int)) ([]models.TextChunk, error) {
	return embedConcurrently(ctx, e, 1, chunks, progressFunc)
}

func (e *HashEmbedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too",
		"very", "can", "will", "just", "should", "now", "what", "which", "who", "whom", "how", "why", "when",
		"where", "do", "does", "did", "i", "you", "he", "she", "we", "they", "me", "my", "your", "our",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
