package index

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pdf-qa-assistant/internal/embedding"
	"pdf-qa-assistant/internal/models"
)

// MemoryStore is an in-process vector store using brute-force cosine similarity.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	chunks    []models.TextChunk
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Reset(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.chunks = nil
	return nil
}

func (s *MemoryStore) Add(_ context.Context, chunks []models.TextChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float64, k int) ([]models.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) != s.dimension {
		return nil, errors.New("vector dimension mismatch")
	}

	results := make([]models.ScoredChunk, len(s.chunks))
	for i, c := range s.chunks {
		score, err := embedding.CosineSimilarity(c.Embedding, vector)
		if err != nil {
			return nil, err
		}
		results[i] = models.ScoredChunk{Chunk: c, Score: score}
	}

	// chunks are held in insertion order, so a stable sort keeps ties in position order
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if k < 0 {
		k = 0
	}
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}
