package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
)

// Embedder embeds queries with a Gemini embedding model.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
	taskType   string
}

// NewEmbedder creates a Gemini embedding provider.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	c, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	taskType := cfg.TaskType
	if taskType == "" {
		taskType = TaskTypeQuery
	}
	return &Embedder{client: c, model: model, dimensions: cfg.Dimensions, taskType: taskType}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	ec := &genai.EmbedContentConfig{TaskType: e.taskType}
	if e.dimensions > 0 {
		d := int32(e.dimensions) //nolint:gosec // dimensions are validated by config
		ec.OutputDimensionality = &d
	}

	start := time.Now()
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), ec)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "api_error").Inc()
		return domain.EmbeddingResult{}, apiError("embedding", err, domain.ErrEmbeddingProviderError)
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(time.Since(start).Seconds())

	return domain.EmbeddingResult{Embedding: resp.Embeddings[0].Values}, nil
}

// HealthCheck implements domain.HealthChecker.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, e.client, e.model)
}
