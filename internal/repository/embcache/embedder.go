// Package embcache decorates an embedder with the query embedding cache:
// an in-process layer in front of an optional shared key-value tier.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/cache"
	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// DefaultSharedTTL bounds how long the shared tier keeps an embedding.
const DefaultSharedTTL = 24 * time.Hour

// store is the consumer interface for the shared tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder answers from the local layer, then the shared tier, then the provider.
type CachedEmbedder struct {
	inner       domain.Embedder
	local       *cache.Layer[[]float32]
	store       store
	sharedTTL   time.Duration
	sharedTotal *prometheus.CounterVec
	logger      *zap.Logger
}

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithSharedStore enables the shared tier. A nil store leaves it off.
func WithSharedStore(s store, ttl time.Duration) Option {
	return func(c *CachedEmbedder) {
		c.store = s
		if ttl > 0 {
			c.sharedTTL = ttl
		}
	}
}

// WithSharedMetrics counts shared tier lookups on a vec labelled "result" ("hit"/"miss").
func WithSharedMetrics(total *prometheus.CounterVec) Option {
	return func(c *CachedEmbedder) { c.sharedTotal = total }
}

// New creates a caching decorator keyed by the raw query text.
func New(inner domain.Embedder, local *cache.Layer[[]float32], logger *zap.Logger, opts ...Option) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:     inner,
		local:     local,
		sharedTTL: DefaultSharedTTL,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if vec, ok := c.local.Get(text); ok {
		return domain.EmbeddingResult{Embedding: slices.Clone(vec)}, nil
	}

	if c.store != nil {
		if vec, ok := c.getShared(ctx, text); ok {
			c.incShared("hit")
			c.local.Set(text, vec)
			return domain.EmbeddingResult{Embedding: slices.Clone(vec)}, nil
		}
		c.incShared("miss")
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if len(result.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingProviderError)
	}

	c.local.Set(text, slices.Clone(result.Embedding))
	if c.store != nil {
		c.putShared(ctx, text, result.Embedding)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports it.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) incShared(result string) {
	if c.sharedTotal != nil {
		c.sharedTotal.WithLabelValues(result).Inc()
	}
}

func sharedKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getShared(ctx context.Context, text string) ([]float32, bool) {
	key := sharedKey(text)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putShared(ctx context.Context, text string, vec []float32) {
	key := sharedKey(text)
	if err := c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.sharedTTL); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
