package llm

import (
	"context"
	"fmt"
	"strings"

	"pdf-qa-assistant/internal/models"
)

// DefaultTopK is the number of chunks supplied as context
const DefaultTopK = 4

// Generator turns a prompt into a completion
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Searcher returns the chunks nearest to a query
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error)
}

// RetrievalQA answers questions from retrieved PDF passages
type RetrievalQA struct {
	searcher  Searcher
	generator Generator
	topK      int
}

// NewRetrievalQA creates a retrieval QA chain over searcher
func NewRetrievalQA(searcher Searcher, generator Generator, topK int) *RetrievalQA {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalQA{searcher: searcher, generator: generator, topK: topK}
}

// AnswerWithContext retrieves the top chunks for question and asks the model to
// answer from them. It returns the answer and the chunks that were supplied.
func (qa *RetrievalQA) AnswerWithContext(ctx context.Context, question string) (string, []models.TextChunk, error) {
	results, err := qa.searcher.Query(ctx, question, qa.topK)
	if err != nil {
		return "", nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	chunks := make([]models.TextChunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}

	answer, err := qa.generator.Generate(ctx, GeneratePrompt(question, chunks))
	if err != nil {
		return "", chunks, err
	}

	return answer, chunks, nil
}

// GeneratePrompt creates a prompt for the LLM with the retrieved passages
func GeneratePrompt(question string, contexts []models.TextChunk) string {
	var promptBuilder strings.Builder

	promptBuilder.WriteString("Use the following pieces of context to answer the question at the end. ")
	promptBuilder.WriteString("If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n")

	for i, c := range contexts {
		fmt.Fprintf(&promptBuilder, "Context %d [%s, Page: %d]:\n", i+1, c.Metadata.Source, c.Metadata.PageNumber)
		promptBuilder.WriteString(c.Content)
		promptBuilder.WriteString("\n\n")
	}

	promptBuilder.WriteString("Question: " + question + "\n")
	promptBuilder.WriteString("Helpful Answer: ")

	return promptBuilder.String()
}
