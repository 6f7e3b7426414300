package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
)

// Completer generates query expressions with a Gemini model.
type Completer struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewCompleter creates a Gemini completer.
func NewCompleter(ctx context.Context, cfg *Config) (*Completer, error) {
	c, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultCompletionModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Completer{
		client:      c,
		model:       model,
		maxTokens:   int32(maxTokens), //nolint:gosec // small config value
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends prompt as a single user turn and returns the response text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), gc)
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		return "", apiError("completion", err, domain.ErrCompletionProviderError)
	}
	text := resp.Text()
	if text == "" {
		metrics.CompletionRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrCompletionProviderError)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(providerName, c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(providerName, c.model).Observe(time.Since(start).Seconds())
	return text, nil
}

// HealthCheck reports whether the model is reachable.
func (c *Completer) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, c.client, c.model)
}
