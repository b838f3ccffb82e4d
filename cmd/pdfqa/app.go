package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"pdf-qa-assistant/internal/config"
	"pdf-qa-assistant/internal/database"
	"pdf-qa-assistant/internal/embedding"
	"pdf-qa-assistant/internal/history"
	"pdf-qa-assistant/internal/index"
	"pdf-qa-assistant/internal/llm"
	"pdf-qa-assistant/internal/pipeline"
)

func newEmbedder(c *config.Config) (index.Embedder, error) {
	switch c.Embedder.Type {
	case "hash":
		return embedding.NewHashEmbedder(c.Embedder.Dimension), nil
	case "ollama", "":
		e, err := embedding.NewOllamaEmbedder(c.Embedder.Host, c.Embedder.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		e.Timeout = c.EmbedTimeout()
		e.MaxRetries = c.Embedder.MaxRetries
		e.MaxConcurrent = c.Embedder.Concurrency
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", c.Embedder.Type)
	}
}

func newGenerator(c *config.Config) (*llm.OllamaLLM, error) {
	g, err := llm.NewOllamaLLM(c.LLM.Host, c.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	g.Timeout = c.GenerateTimeout()
	g.Temperature = c.LLM.Temperature
	g.MaxTokens = c.LLM.MaxTokens
	return g, nil
}

// newStore returns the configured vector store and a function releasing it
func newStore(ctx context.Context, c *config.Config) (index.Store, func(), error) {
	switch c.VectorStore.Type {
	case "postgres":
		db, err := database.NewVectorStore(ctx, c.VectorStore.DSN)
		if err != nil {
			return nil, nil, err
		}
		db.WithTable(c.VectorStore.Table)
		return db, db.Close, nil
	case "memory", "":
		return index.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", c.VectorStore.Type)
	}
}

// bootstrap builds the pipeline for c, reporting embedding progress to progress.
// A *models.LoadError means no documents could be loaded and nothing can be answered.
func bootstrap(ctx context.Context, c *config.Config, progress io.Writer) (*pipeline.Pipeline, func(), error) {
	embedder, err := newEmbedder(c)
	if err != nil {
		return nil, nil, err
	}
	generator, err := newGenerator(c)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := newStore(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	p, err := pipeline.Bootstrap(ctx, pipeline.Options{
		Dir:            c.PDFDir,
		ChunkSize:      c.Chunker.Size,
		ChunkOverlap:   c.Chunker.Overlap,
		Embedder:       embedder,
		Store:          store,
		Generator:      generator,
		GeneratorModel: c.LLM.Model,
		TopK:           c.Retrieval.TopK,
		Threshold:      c.Retrieval.RelevanceThreshold,
		History:        history.New(c.History.Path),
		Progress:       progressReporter(progress),
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return p, closeStore, nil
}

// progressReporter prints embedding progress with an estimate of the remaining time
func progressReporter(w io.Writer) func(processed, total int) {
	if w == nil {
		return nil
	}
	start := time.Now()
	return func(processed, total int) {
		elapsedTime := time.Since(start)
		estimatedTotal := elapsedTime * time.Duration(total) / time.Duration(processed)
		estimatedRemaining := estimatedTotal - elapsedTime

		fmt.Fprintf(w, "\rEmbedding chunks: %d/%d (%.1f%%) - est. remaining: %v   ",
			processed, total, float64(processed)/float64(total)*100, estimatedRemaining.Round(time.Second))
		if processed == total {
			fmt.Fprintln(w)
		}
	}
}
