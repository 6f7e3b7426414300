// Package gemini adapts the Gemini API to the embedding and query generation
// contracts. It is the default provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const providerName = "gemini"

// Defaults match the models the retriever was tuned with.
const (
	DefaultCompletionModel = "gemini-2.5-flash"
	DefaultEmbeddingModel  = "text-embedding-004"
	DefaultMaxTokens       = 300
	// TaskTypeQuery tunes embeddings for the query side of retrieval.
	TaskTypeQuery = "RETRIEVAL_QUERY"
)

// Config holds the Gemini settings shared by the embedder and the completer.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL     string
	Model       string
	Dimensions  int
	MaxTokens   int
	Temperature float32
	TaskType    string
	HTTPClient  *http.Client
}

func newClient(ctx context.Context, cfg *Config) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return c, nil
}

func healthCheck(ctx context.Context, c *genai.Client, model string) error {
	if _, err := c.Models.Get(ctx, model, nil); err != nil {
		return fmt.Errorf("get model %s: %w", model, err)
	}
	return nil
}

// apiError adds the HTTP status to SDK errors and wraps sentinel.
func apiError(kind string, err, sentinel error) error {
	var ae genai.APIError
	if errors.As(err, &ae) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, ae.Code, ae.Message, sentinel)
	}
	var pae *genai.APIError
	if errors.As(err, &pae) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, pae.Code, pae.Message, sentinel)
	}
	return fmt.Errorf("%s request failed: %w: %w", kind, sentinel, err)
}
