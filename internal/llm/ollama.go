package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"pdf-qa-assistant/internal/embedding"
	"pdf-qa-assistant/internal/models"

	"github.com/ollama/ollama/api"
)

// DefaultTimeout bounds a single generation call
const DefaultTimeout = 2 * time.Minute

var thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// OllamaLLM handles interactions with the Ollama LLM API
type OllamaLLM struct {
	Client      *api.Client
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// NewOllamaLLM creates a new Ollama LLM client.
// An empty host falls back to OLLAMA_HOST.
func NewOllamaLLM(host string, model string) (*OllamaLLM, error) {
	client, err := embedding.NewClient(host)
	if err != nil {
		return nil, err
	}

	return &OllamaLLM{
		Client:      client,
		Model:       model,
		Timeout:     DefaultTimeout,
		Temperature: 0.1,
		MaxTokens:   1024,
	}, nil
}

// ModelName returns the generation model identifier
func (o *OllamaLLM) ModelName() string {
	return o.Model
}

// Generate sends prompt to the model and returns the completion.
// Reasoning models wrap their scratch work in <think> tags; that part is dropped.
func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": o.Temperature,
			"num_predict": o.MaxTokens,
		},
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var responseBuilder strings.Builder

	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", &models.ModelInvocationError{
			Op:    "generate",
			Model: o.Model,
			Err:   fmt.Errorf("failed to generate response: %w", err),
		}
	}

	return StripThinking(responseBuilder.String()), nil
}

// CheckModels verifies the server is reachable and that every named model is pulled
func (o *OllamaLLM) CheckModels(ctx context.Context, names ...string) error {
	if err := o.Client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("failed to reach ollama: %w", err)
	}

	list, err := o.Client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	available := make(map[string]bool)
	for _, m := range list.Models {
		available[m.Name] = true
		// Also accept the name without the :latest tag
		available[strings.TrimSuffix(m.Name, ":latest")] = true
	}

	var missing []string
	for _, name := range names {
		if name != "" && !available[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing models %v; install them with 'ollama pull <model>'", missing)
	}

	return nil
}

// StripThinking removes <think>...</think> sections and surrounding whitespace
func StripThinking(text string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
}
