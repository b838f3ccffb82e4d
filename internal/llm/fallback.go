package llm

import (
	"context"
	"errors"

	"pdf-qa-assistant/internal/models"
)

// DirectAnswerer asks the model without any retrieved context
type DirectAnswerer struct {
	generator Generator
	model     string
}

// NewDirectAnswerer creates a fallback answerer; model is used in error reports
func NewDirectAnswerer(generator Generator, model string) *DirectAnswerer {
	return &DirectAnswerer{generator: generator, model: model}
}

// AnswerWithoutContext returns the model's own answer to question.
// Failures are always reported as *models.ModelInvocationError.
func (d *DirectAnswerer) AnswerWithoutContext(ctx context.Context, question string) (string, error) {
	answer, err := d.generator.Generate(ctx, DirectPrompt(question))
	if err != nil {
		var invErr *models.ModelInvocationError
		if errors.As(err, &invErr) {
			return "", err
		}
		return "", &models.ModelInvocationError{Op: "generate", Model: d.model, Err: err}
	}
	return answer, nil
}

// DirectPrompt is the prompt used when no context is trusted
func DirectPrompt(question string) string {
	return "Answer this question directly: " + question
}
