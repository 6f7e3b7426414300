// Package vector implements the nearest-neighbour branch of retrieval.
package vector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
)

// Service runs vector searches.
type Service struct {
	embed     Embedder
	search    Searcher
	k         int
	threshold float64
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithK sets how many neighbours are requested.
func WithK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithThreshold sets the exclusive similarity cut-off.
func WithThreshold(t float64) Option {
	return func(s *Service) { s.threshold = t }
}

// New creates a vector search service.
func New(e Embedder, s Searcher, logger *zap.Logger, opts ...Option) *Service {
	svc := &Service{
		embed:     e,
		search:    s,
		k:         domain.DefaultTopK,
		threshold: domain.DefaultSimilarityThreshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Search embeds the question and returns neighbours whose similarity is
// strictly above the threshold, in datastore order.
func (s *Service) Search(ctx context.Context, query string) ([]candidate.Record, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)
	if len(emb.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingProviderError)
	}

	hits, err := s.search.Nearest(ctx, emb.Embedding, s.k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	recs := make([]candidate.Record, 0, len(hits))
	for _, h := range hits {
		if h.Similarity <= s.threshold {
			continue
		}
		rec, err := candidate.FromFields(h.Fields)
		if err != nil {
			s.logger.Debug("Skipping row", zap.Error(err))
			continue
		}
		recs = append(recs, rec.WithSimilarity(h.Similarity))
	}

	s.logger.Debug("Vector search completed",
		zap.Int("neighbours", len(hits)),
		zap.Int("kept", len(recs)),
		zap.Float64("threshold", s.threshold),
	)
	return recs, nil
}
