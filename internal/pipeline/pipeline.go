// Package pipeline wires loading, indexing, retrieval, gating, fallback and
// logging into the single Ask entry point.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pdf-qa-assistant/internal/history"
	"pdf-qa-assistant/internal/index"
	"pdf-qa-assistant/internal/llm"
	"pdf-qa-assistant/internal/models"
	"pdf-qa-assistant/internal/processor"
	"pdf-qa-assistant/internal/relevance"
)

// Options configures Bootstrap.
type Options struct {
	Dir          string
	ChunkSize    int
	ChunkOverlap int
	// Processor overrides the loader built from ChunkSize and ChunkOverlap.
	Processor *processor.PDFProcessor

	Embedder index.Embedder
	// Store defaults to an in-memory store.
	Store index.Store

	Generator      llm.Generator
	GeneratorModel string
	TopK           int
	Threshold      float64

	// History is optional; a nil log disables persistence.
	History *history.Log

	Progress func(processed, total int)
	Now      func() time.Time
}

// Stats describes what was indexed at startup.
type Stats struct {
	Files  int
	Pages  int
	Chunks []models.TextChunk
}

// Pipeline answers questions against an index built once at startup.
// It is safe to share; the index is read-only after Bootstrap.
type Pipeline struct {
	qa        *llm.RetrievalQA
	gate      *relevance.Gate
	fallback  *llm.DirectAnswerer
	log       *history.Log
	index     *index.Index
	threshold float64
	now       func() time.Time
	stats     Stats

	// loadErr disables answering when the document set could not be loaded.
	loadErr error
}

// Bootstrap loads every PDF in opts.Dir, chunks the pages and builds the index.
// When the documents cannot be loaded it returns a disabled pipeline together
// with the *models.LoadError, so callers can report it once and refuse questions.
func Bootstrap(ctx context.Context, opts Options) (*Pipeline, error) {
	if opts.Embedder == nil || opts.Generator == nil {
		return nil, errors.New("pipeline needs an embedder and a generator")
	}

	proc := opts.Processor
	if proc == nil {
		proc = processor.NewPDFProcessor(opts.ChunkSize, opts.ChunkOverlap)
	}
	store := opts.Store
	if store == nil {
		store = index.NewMemoryStore()
	}

	pages, err := proc.LoadDirectory(ctx, opts.Dir)
	if err != nil {
		var loadErr *models.LoadError
		if errors.As(err, &loadErr) {
			slog.Error("question answering disabled", "error", err)
			return newDisabled(opts, err), err
		}
		return nil, err
	}

	chunks := proc.ChunkPages(pages)
	if len(chunks) == 0 {
		err := &models.LoadError{Dir: opts.Dir, Err: models.ErrNoDocuments}
		slog.Error("question answering disabled", "error", err)
		return newDisabled(opts, err), err
	}
	slog.Info("documents loaded", "dir", opts.Dir, "pages", len(pages), "chunks", len(chunks))

	ix, err := index.Build(ctx, opts.Embedder, store, chunks, index.Options{Progress: opts.Progress})
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	p := New(ix, opts)
	p.stats = Stats{Files: countSources(pages), Pages: len(pages), Chunks: chunks}
	return p, nil
}

// New assembles a pipeline over an existing index.
func New(ix *index.Index, opts Options) *Pipeline {
	p := newDisabled(opts, nil)
	p.index = ix
	p.qa = llm.NewRetrievalQA(ix, opts.Generator, opts.TopK)
	return p
}

func newDisabled(opts Options, loadErr error) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		gate:      relevance.NewGate(opts.Embedder),
		fallback:  llm.NewDirectAnswerer(opts.Generator, opts.GeneratorModel),
		log:       opts.History,
		threshold: opts.Threshold,
		now:       now,
		loadErr:   loadErr,
	}
}

// Ready reports whether questions can be answered.
func (p *Pipeline) Ready() bool { return p.loadErr == nil && p.qa != nil }

// LoadErr returns the startup failure that disabled answering, if any.
func (p *Pipeline) LoadErr() error { return p.loadErr }

// Stats returns what Bootstrap indexed.
func (p *Pipeline) Stats() Stats { return p.stats }

// Index returns the underlying index, nil when disabled.
func (p *Pipeline) Index() *index.Index { return p.index }

// History returns the interaction log, possibly nil.
func (p *Pipeline) History() *history.Log { return p.log }

// Ask answers one question. Model failures become an answer of type
// models.FromError; only a disabled pipeline or an empty question return an error.
func (p *Pipeline) Ask(ctx context.Context, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuestion
	}
	if !p.Ready() {
		if p.loadErr != nil {
			return nil, p.loadErr
		}
		return nil, models.ErrNoDocuments
	}

	start := p.now()
	ans := &models.Answer{Question: question, Timestamp: start}
	r := &run{answer: ans}
	r.to(models.Idle)

	slog.Debug("question received", "question", question)

	r.to(models.Retrieving)
	candidate, chunks, err := p.qa.AnswerWithContext(ctx, question)
	if err != nil {
		// nothing retrieved is trusted; the gate rejects an empty list
		slog.Warn("retrieval failed, falling back", "error", err)
		chunks = nil
	} else {
		slog.Debug("retrieved answer", "answer", candidate, "sources", len(chunks))
	}

	r.to(models.Gating)
	relevant, score, err := p.gate.IsRelevant(ctx, question, chunks, p.threshold)
	if err != nil {
		slog.Warn("relevance scoring failed, falling back", "error", err)
		relevant = false
	}
	ans.MaxScore = score
	slog.Debug("relevance gate", "max_similarity", fmt.Sprintf("%.2f", score), "relevant", relevant)

	if relevant {
		r.to(models.ContextGrounded)
		ans.Type = models.FromContext
		ans.Text = candidate
		ans.Sources = chunks
	} else {
		r.to(models.Fallback)
		text, err := p.fallback.AnswerWithoutContext(ctx, question)
		if err != nil {
			ans.Type = models.FromError
			ans.Text = "Error getting answer from model: " + err.Error()
			ans.Err = err
			slog.Error("fallback answer failed", "error", err)
		} else {
			ans.Type = models.FromModel
			ans.Text = text
			slog.Debug("model direct answer", "answer", text)
		}
	}

	ans.Elapsed = p.now().Sub(start)
	r.to(models.Logged)

	if p.log != nil {
		if err := p.log.Append(ans.Record()); err != nil {
			slog.Warn("failed to record interaction", "error", err)
		}
	}

	slog.Info("question answered",
		"type", ans.Type,
		"elapsed_sec", fmt.Sprintf("%.2f", ans.Elapsed.Seconds()),
		"max_similarity", fmt.Sprintf("%.2f", ans.MaxScore),
		"sources", len(ans.Sources))

	return ans, nil
}

// run tracks the state sequence of one question.
type run struct {
	answer *models.Answer
}

func (r *run) to(next models.State) {
	trace := r.answer.Trace
	if n := len(trace); n > 0 && !trace[n-1].CanTransition(next) {
		panic(fmt.Sprintf("illegal pipeline transition %s -> %s", trace[n-1], next))
	}
	r.answer.Trace = append(trace, next)
}

func countSources(pages []models.Page) int {
	seen := make(map[string]struct{})
	for _, pg := range pages {
		seen[pg.Source] = struct{}{}
	}
	return len(seen)
}
