// Package structured implements the structured branch of retrieval: a query
// expression is generated from the question, the scoped site map and the
// hints, then executed against the page index.
package structured

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
	"github.com/kailas-cloud/kbsearch/internal/domain/hints"
	"github.com/kailas-cloud/kbsearch/internal/usecase/scope"
)

// Fallback reasons, also used as metric labels.
const (
	reasonStaleQuery = "stale_cached_query"
	reasonFullScope  = "full_scope"
)

// Service runs structured searches.
type Service struct {
	hints     HintFinder
	scope     ScopeFilter
	gen       Completer
	exec      Executor
	cache     QueryCache
	schema    string
	fallbacks *prometheus.CounterVec
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFallbackMetrics counts retries on a vec labelled "reason".
func WithFallbackMetrics(v *prometheus.CounterVec) Option {
	return func(s *Service) { s.fallbacks = v }
}

// New creates a structured search service. schema describes the queryable
// index fields to the generator.
func New(
	h HintFinder, sc ScopeFilter, gen Completer, exec Executor,
	cache QueryCache, schema string, logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		hints:  h,
		scope:  sc,
		gen:    gen,
		exec:   exec,
		cache:  cache,
		schema: schema,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey identifies a generated query by question and hints.
func CacheKey(query string, h hints.Hints) string {
	return query + ":" + h.Fingerprint()
}

// Search returns the structured hits for a question.
// Errors wrap domain.ErrGeneration, domain.ErrExecution or
// domain.ErrDatastoreUnavailable.
func (s *Service) Search(ctx context.Context, query string) ([]candidate.Record, error) {
	h := s.hints.Find(query)
	key := CacheKey(query, h)

	s.logger.Debug("Structured search hints",
		zap.Strings("slug_hints", h.Slugs),
		zap.Strings("hierarchy_hints", h.Hierarchy),
	)

	if cached, ok := s.cache.Get(key); ok {
		recs, err := s.execute(ctx, cached)
		if err == nil {
			return recs, nil
		}
		if errors.Is(err, domain.ErrDatastoreUnavailable) {
			return nil, err
		}
		s.logger.Warn("Cached query failed, regenerating", zap.String("query", cached), zap.Error(err))
		s.incFallback(reasonStaleQuery)
	}

	doc := s.scope.Apply(h.Hierarchy)
	recs, q, err := s.attempt(ctx, query, h, doc)

	if len(recs) == 0 && !doc.Full {
		if errors.Is(err, domain.ErrDatastoreUnavailable) {
			return nil, err
		}
		if err != nil {
			s.logger.Warn("Filtered scope attempt failed", zap.Error(err))
		}
		s.logger.Info("Filtered scope yielded no rows, retrying with full site map",
			zap.String("reason", doc.Reason),
			zap.Strings("categories", doc.Categories),
		)
		s.incFallback(reasonFullScope)
		recs, q, err = s.attempt(ctx, query, h, s.scope.Full())
	}
	if err != nil {
		return nil, err
	}

	if len(recs) > 0 {
		s.cache.Set(key, q)
	}
	return recs, nil
}

// attempt generates a query for one scope and executes it.
func (s *Service) attempt(
	ctx context.Context, question string, h hints.Hints, doc scope.Document,
) ([]candidate.Record, string, error) {
	q, err := s.generate(ctx, question, h, doc)
	if err != nil {
		return nil, "", err
	}

	s.logger.Debug("Generated query",
		zap.Bool("full_scope", doc.Full),
		zap.Int("scope_size", len(doc.Text)),
		zap.String("query", q),
	)

	recs, err := s.execute(ctx, q)
	if err != nil {
		return nil, q, err
	}
	return recs, q, nil
}

func (s *Service) generate(ctx context.Context, question string, h hints.Hints, doc scope.Document) (string, error) {
	prompt, err := renderPrompt(s.schema, doc.Text, question, h)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	raw, err := s.gen.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	q := Sanitize(raw)
	if q == "" {
		return "", fmt.Errorf("%w: empty query", domain.ErrGeneration)
	}
	return q, nil
}

func (s *Service) execute(ctx context.Context, q string) ([]candidate.Record, error) {
	rows, err := s.exec.Execute(ctx, q)
	if err != nil {
		if errors.Is(err, domain.ErrDatastoreUnavailable) || errors.Is(err, domain.ErrExecution) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExecution, err)
	}

	recs := make([]candidate.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := candidate.FromFields(row)
		if err != nil {
			s.logger.Debug("Skipping row", zap.Error(err))
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Service) incFallback(reason string) {
	if s.fallbacks != nil {
		s.fallbacks.WithLabelValues(reason).Inc()
	}
}
