package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/cache"
	"github.com/kailas-cloud/kbsearch/internal/config"
	dbRedis "github.com/kailas-cloud/kbsearch/internal/db/redis"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/sitemap"
	logpkg "github.com/kailas-cloud/kbsearch/internal/logger"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
	"github.com/kailas-cloud/kbsearch/internal/repository/embcache"
	"github.com/kailas-cloud/kbsearch/internal/repository/pages"
	anthropicTransport "github.com/kailas-cloud/kbsearch/internal/transport/anthropic"
	geminiTransport "github.com/kailas-cloud/kbsearch/internal/transport/gemini"
	openaiTransport "github.com/kailas-cloud/kbsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/kbsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/kbsearch/internal/usecase/health"
	hintsuc "github.com/kailas-cloud/kbsearch/internal/usecase/hints"
	"github.com/kailas-cloud/kbsearch/internal/usecase/ranking"
	"github.com/kailas-cloud/kbsearch/internal/usecase/retrieval"
	"github.com/kailas-cloud/kbsearch/internal/usecase/scope"
	"github.com/kailas-cloud/kbsearch/internal/usecase/structured"
	"github.com/kailas-cloud/kbsearch/internal/usecase/vector"
	"github.com/kailas-cloud/kbsearch/internal/version"
)

// completer is what the structured branch and the health check need from a
// language model provider.
type completer interface {
	structured.Completer
	healthuc.Checker
}

// embedder is a provider embedder with a health check.
type embedder interface {
	domain.Embedder
	healthuc.Checker
}

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store

	retriever *retrieval.Orchestrator
	caches    *cache.Registry
	health    *healthuc.Service
}

// loadApp reads config and builds the logger. It does not touch the datastore.
func loadApp() (*app, error) {
	var (
		cfg config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load(flagEnv)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(flagEnv, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &app{env: flagEnv, cfg: cfg, logger: logger}, nil
}

// connect opens the datastore and waits until it answers.
func (a *app) connect(ctx context.Context) error {
	a.logger.Info("Connecting to datastore", zap.Strings("addrs", a.cfg.Database.Addrs))

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    a.cfg.Database.Addrs,
		Username: a.cfg.Database.Username,
		Password: a.cfg.Database.Password,
		DB:       a.cfg.Database.DB,
		PoolSize: a.cfg.Database.PoolSize,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	a.store = store

	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("datastore not ready: %w", err)
	}
	a.logger.Info("Connected to datastore")
	return nil
}

// build wires the retrieval pipeline. connect must have succeeded.
func (a *app) build(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	metrics.RegisterProviderMetrics()
	metrics.RegisterRetrievalMetrics()

	a.caches = cache.NewRegistry()
	cacheOpt := cache.WithMetrics(metrics.CacheRequestsTotal)
	results := cache.Build[retrieval.Result](cache.LayerResults, layerConfig(cfg.Cache.Results), logger, cacheOpt)
	queries := cache.Build[string](cache.LayerQueries, layerConfig(cfg.Cache.Queries), logger, cacheOpt)
	embeddings := cache.Build[[]float32](cache.LayerEmbeddings, layerConfig(cfg.Cache.Embeddings), logger, cacheOpt)
	a.caches.Register(results, queries, embeddings)

	index, err := sitemap.Load(cfg.Retrieval.SitemapPath)
	if err != nil {
		return fmt.Errorf("load site map: %w", err)
	}
	logger.Info("Site map loaded",
		zap.String("path", cfg.Retrieval.SitemapPath),
		zap.Int("entries", index.Len()),
	)

	def, err := pages.Definition(vectorConfig(cfg), pages.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err != nil {
		return fmt.Errorf("page index definition: %w", err)
	}
	repo := pages.New(a.store, cfg.Retrieval.TopK)

	gen, err := newCompleter(ctx, cfg.Providers.Completion)
	if err != nil {
		return fmt.Errorf("completion provider: %w", err)
	}
	base, err := newEmbedder(ctx, cfg.Providers.Embedding)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}

	var embOpts []embcache.Option
	if cfg.Cache.SharedEmbeddings.Enabled {
		embOpts = append(embOpts,
			embcache.WithSharedStore(a.store, time.Duration(cfg.Cache.SharedEmbeddings.TTLSec)*time.Second),
			embcache.WithSharedMetrics(metrics.EmbeddingCacheTotal),
		)
	}
	emb := embeddinguc.NewInstrumentedEmbedder(
		embcache.New(domain.WithQueryPrefix(base, cfg.Providers.Embedding.QueryPrefix), embeddings, logger, embOpts...),
		cfg.Providers.Embedding.Provider, cfg.Providers.Embedding.Model, logger,
	)

	structuredSvc := structured.New(
		hintsuc.New(index),
		scope.New(index, logger),
		gen,
		repo,
		queries,
		def.Schema(),
		logger,
		structured.WithFallbackMetrics(metrics.StructuredFallbackTotal),
	)
	vectorSvc := vector.New(emb, repo, logger,
		vector.WithK(cfg.Retrieval.TopK),
		vector.WithThreshold(*cfg.Retrieval.SimilarityThreshold),
	)

	ranker, err := ranking.New(rankingWeights(cfg.Ranking))
	if err != nil {
		return fmt.Errorf("ranking weights: %w", err)
	}

	a.retriever = retrieval.New(structuredSvc, vectorSvc, ranker, results, logger,
		retrieval.WithMaxConcurrency(cfg.Retrieval.MaxConcurrency),
		retrieval.WithBranchTimeout(time.Duration(cfg.Retrieval.BranchTimeoutSec)*time.Second),
		retrieval.WithLimits(cfg.Retrieval.TopK, cfg.Retrieval.MaxMerged),
		retrieval.WithMetrics(metrics.BranchDuration, metrics.RetrievalsTotal),
	)
	a.health = healthuc.New(a.store, base, gen)

	logger.Info("Retrieval pipeline ready",
		zap.String("version", version.Version),
		zap.String("completion_provider", cfg.Providers.Completion.Provider),
		zap.String("embedding_provider", cfg.Providers.Embedding.Provider),
		zap.Int("max_concurrency", cfg.Retrieval.MaxConcurrency),
	)
	return nil
}

// start loads config, connects and builds the pipeline.
func start(ctx context.Context) (*app, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	if err := a.connect(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

func newCompleter(ctx context.Context, pc config.ProviderConfig) (completer, error) {
	switch pc.Provider {
	case config.ProviderOpenAI:
		return openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			Provider:    pc.Provider,
			MaxTokens:   pc.MaxTokens,
			Temperature: float32(pc.Temperature),
		}), nil
	case config.ProviderAnthropic:
		return anthropicTransport.NewCompleter(&anthropicTransport.Config{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
		})
	default:
		return geminiTransport.NewCompleter(ctx, &geminiTransport.Config{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: float32(pc.Temperature),
		})
	}
}

func newEmbedder(ctx context.Context, pc config.ProviderConfig) (embedder, error) {
	switch pc.Provider {
	case config.ProviderOpenAI:
		return openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			Provider:   pc.Provider,
			Dimensions: pc.Dimensions,
		}), nil
	default:
		return geminiTransport.NewEmbedder(ctx, &geminiTransport.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			Dimensions: pc.Dimensions,
			TaskType:   geminiTransport.TaskTypeQuery,
		})
	}
}

func layerConfig(l config.LayerConfig) cache.Config {
	return cache.Config{Disabled: !l.IsEnabled(), Size: l.Size, TTL: l.TTL()}
}

func vectorConfig(cfg config.Config) domain.VectorConfig {
	vc := domain.DefaultVectorConfig()
	vc.Dimensions = cfg.Providers.Embedding.Dimensions
	vc.Algorithm = cfg.Index.Algorithm
	vc.DistanceMetric = cfg.Index.Distance
	if cfg.Providers.Embedding.Model != "" {
		vc.Model = cfg.Providers.Embedding.Model
	}
	return vc
}

// rankingWeights overlays the configured weights on the defaults. Zero keeps
// the default.
func rankingWeights(rc config.RankingConfig) ranking.Weights {
	w := ranking.DefaultWeights()
	overlay := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	overlay(&w.Similarity, rc.Similarity)
	overlay(&w.ExactSlug, rc.ExactSlug)
	overlay(&w.FuzzySlug, rc.FuzzySlug)
	overlay(&w.ExactID, rc.ExactID)
	overlay(&w.FuzzyID, rc.FuzzyID)
	overlay(&w.ExactTitle, rc.ExactTitle)
	overlay(&w.TitleRatio, rc.TitleRatio)
	overlay(&w.TitleOverlap, rc.TitleOverlap)
	overlay(&w.Content, rc.Content)
	overlay(&w.ContentBonus, rc.ContentBonus)
	if rc.ContentBonusMinLen != 0 {
		w.ContentBonusMinLen = rc.ContentBonusMinLen
	}
	return w
}
