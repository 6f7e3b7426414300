package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// QueryPrefixEmbedder prepends a fixed task prefix to every query, for
// models that expect one (e.g. "search_query: ").
type QueryPrefixEmbedder struct {
	inner  Embedder
	prefix string
}

// WithQueryPrefix returns inner unchanged when prefix is empty.
func WithQueryPrefix(inner Embedder, prefix string) Embedder {
	if prefix == "" {
		return inner
	}
	return &QueryPrefixEmbedder{inner: inner, prefix: prefix}
}

// Embed embeds prefix+text.
func (e *QueryPrefixEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.prefix+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("prefixed embed: %w", err)
	}
	return result, nil
}

// HealthCheck delegates to inner when it supports health checks.
func (e *QueryPrefixEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
