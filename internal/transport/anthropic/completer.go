// Package anthropic adapts the Anthropic Messages API to the query generation
// contract.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
)

const providerName = "anthropic"

// Defaults for query generation.
const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	DefaultMaxTokens = 300
)

// Config holds the Anthropic settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	// MaxRetries overrides the SDK retry count when positive. Negative disables retries.
	MaxRetries int
}

// Completer generates query expressions with a Claude model.
type Completer struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewCompleter creates an Anthropic completer.
func NewCompleter(cfg *Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	switch {
	case cfg.MaxRetries > 0:
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	case cfg.MaxRetries < 0:
		opts = append(opts, option.WithMaxRetries(0))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Completer{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends prompt as a single user message and joins the text blocks of
// the reply.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("completion API error %d: %w", apiErr.StatusCode, domain.ErrCompletionProviderError)
		}
		return "", fmt.Errorf("completion request failed: %w: %w", domain.ErrCompletionProviderError, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if sb.Len() == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrCompletionProviderError)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(providerName, c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(providerName, c.model).Observe(time.Since(start).Seconds())
	return sb.String(), nil
}

// HealthCheck lists models, which costs no tokens.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)}); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
