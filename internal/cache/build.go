package cache

import (
	"time"

	"go.uber.org/zap"
)

// Layer names, also used as metric labels.
const (
	LayerResults    = "results"
	LayerQueries    = "queries"
	LayerEmbeddings = "embeddings"
)

// Config sizes one layer.
type Config struct {
	Disabled bool
	Size     int
	TTL      time.Duration
}

// Build creates a layer and falls back to a disabled one when cfg is unusable.
func Build[V any](name string, cfg Config, logger *zap.Logger, opts ...Option) *Layer[V] {
	if cfg.Disabled {
		logger.Info("Cache layer disabled by config", zap.String("layer", name))
		return Disabled[V](name, opts...)
	}
	l, err := New[V](name, cfg.Size, cfg.TTL, opts...)
	if err != nil {
		logger.Warn("Cache layer unavailable, continuing without it",
			zap.String("layer", name),
			zap.Int("size", cfg.Size),
			zap.Duration("ttl", cfg.TTL),
			zap.Error(err),
		)
		return Disabled[V](name, opts...)
	}
	return l
}
