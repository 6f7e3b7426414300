// Package retrieval runs the structured and vector branches concurrently and
// merges their hits into one ranked result.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
)

// Branch names, also used as metric labels.
const (
	BranchStructured = "structured"
	BranchVector     = "vector"
)

// Defaults for the worker pool.
const (
	DefaultMaxConcurrency = 16
	DefaultBranchTimeout  = 30 * time.Second
)

// Orchestrator is safe for concurrent use. The semaphore is shared by every
// Retrieve call, so at most maxConcurrency branches run at once process-wide.
type Orchestrator struct {
	structured Searcher
	vector     Searcher
	ranker     Ranker
	cache      ResultCache

	sem           *semaphore.Weighted
	branchTimeout time.Duration
	topK          int
	maxMerged     int

	branchDuration *prometheus.HistogramVec
	retrievals     *prometheus.CounterVec
	logger         *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxConcurrency bounds the number of branches running at once.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithBranchTimeout sets the per-branch deadline. Zero disables it.
func WithBranchTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.branchTimeout = d }
}

// WithLimits sets how many ranked vector hits are kept and the merged list cap.
func WithLimits(topK, maxMerged int) Option {
	return func(o *Orchestrator) {
		if topK > 0 {
			o.topK = topK
		}
		if maxMerged > 0 {
			o.maxMerged = maxMerged
		}
	}
}

// WithMetrics records branch durations and retrieval outcomes.
func WithMetrics(branchDuration *prometheus.HistogramVec, retrievals *prometheus.CounterVec) Option {
	return func(o *Orchestrator) {
		o.branchDuration = branchDuration
		o.retrievals = retrievals
	}
}

// New creates an orchestrator.
func New(structured, vector Searcher, ranker Ranker, cache ResultCache, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		structured:    structured,
		vector:        vector,
		ranker:        ranker,
		cache:         cache,
		sem:           semaphore.NewWeighted(DefaultMaxConcurrency),
		branchTimeout: DefaultBranchTimeout,
		topK:          domain.DefaultTopK,
		maxMerged:     domain.DefaultMaxMerged,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type branchResult struct {
	records []candidate.Record
	err     error
}

// Retrieve returns the three-part result for a query. Branch failures are
// logged and collapse to empty lists; the only error returned wraps
// domain.ErrDatastoreUnavailable and means both branches lost the datastore.
func (o *Orchestrator) Retrieve(ctx context.Context, query string) (Result, error) {
	start := time.Now()
	logger := o.logger.With(zap.String("retrieval_id", uuid.NewString()))
	key := CacheKey(query)

	if cached, ok := o.cache.Get(key); ok {
		out := cached.Clone()
		out.Cached = true
		o.incRetrieval("cached")
		logger.Info("Retrieval served from cache",
			zap.String("query", query),
			zap.Int("merged", len(out.Merged)),
			zap.Duration("duration", time.Since(start)),
		)
		return out, nil
	}

	var structured, vector branchResult
	var g errgroup.Group
	g.Go(func() error {
		structured = o.runBranch(ctx, logger, BranchStructured, o.structured, query)
		return nil
	})
	g.Go(func() error {
		vector = o.runBranch(ctx, logger, BranchVector, o.vector, query)
		return nil
	})
	_ = g.Wait()

	structuredDown := errors.Is(structured.err, domain.ErrDatastoreUnavailable)
	vectorDown := errors.Is(vector.err, domain.ErrDatastoreUnavailable)
	if structuredDown && vectorDown {
		o.incRetrieval("unavailable")
		logger.Error("Datastore unavailable for both branches", zap.String("query", query))
		return Result{}, fmt.Errorf("retrieve: %w", errors.Join(structured.err, vector.err))
	}

	top := o.ranker.Rank(vector.records, query)
	if len(top) > o.topK {
		top = top[:o.topK]
	}
	merged := o.ranker.Rank(Merge(structured.records, top, o.maxMerged), query)

	res := Result{
		Structured: structured.records,
		TopVector:  top,
		Merged:     merged,
	}.Clone()

	if cacheable(ctx, structured.err, vector.err) {
		o.cache.Set(key, res.Clone())
	} else {
		logger.Warn("Skipping result cache after partial failure",
			zap.NamedError("structured_error", structured.err),
			zap.NamedError("vector_error", vector.err),
		)
	}

	o.incRetrieval("ok")
	logger.Info("Retrieval complete",
		zap.String("query", query),
		zap.Int("structured", len(res.Structured)),
		zap.Int("top_vector", len(res.TopVector)),
		zap.Int("merged", len(res.Merged)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// runBranch runs one branch inside a pool slot with its own deadline.
func (o *Orchestrator) runBranch(
	ctx context.Context, logger *zap.Logger, name string, s Searcher, query string,
) branchResult {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		logger.Warn("Branch not started", zap.String("branch", name), zap.Error(err))
		return branchResult{err: err}
	}
	defer o.sem.Release(1)

	bctx := ctx
	if o.branchTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, o.branchTimeout)
		defer cancel()
	}

	start := time.Now()
	recs, err := s.Search(bctx, query)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		recs = nil
		logger.Warn("Branch failed",
			zap.String("branch", name),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	case len(recs) == 0:
		outcome = "empty"
	}
	if o.branchDuration != nil {
		o.branchDuration.WithLabelValues(name, outcome).Observe(elapsed.Seconds())
	}

	logger.Debug("Branch finished",
		zap.String("branch", name),
		zap.String("outcome", outcome),
		zap.Int("records", len(recs)),
		zap.Duration("duration", elapsed),
	)
	return branchResult{records: recs, err: err}
}

// cacheable reports whether a result may be stored. Partial results after an
// outage, a deadline or a cancellation are not.
func cacheable(ctx context.Context, errs ...error) bool {
	if ctx.Err() != nil {
		return false
	}
	for _, err := range errs {
		if errors.Is(err, domain.ErrDatastoreUnavailable) ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, context.Canceled) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) incRetrieval(outcome string) {
	if o.retrievals != nil {
		o.retrievals.WithLabelValues(outcome).Inc()
	}
}
