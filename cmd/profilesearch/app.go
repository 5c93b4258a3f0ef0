package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/profilesearch/internal/config"
	"github.com/kailas-cloud/profilesearch/internal/corpus"
	dbRedis "github.com/kailas-cloud/profilesearch/internal/db/redis"
	sqlitedb "github.com/kailas-cloud/profilesearch/internal/db/sqlite"
	"github.com/kailas-cloud/profilesearch/internal/domain"
	"github.com/kailas-cloud/profilesearch/internal/index"
	memindex "github.com/kailas-cloud/profilesearch/internal/index/memory"
	sqliteindex "github.com/kailas-cloud/profilesearch/internal/index/sqlite"
	logpkg "github.com/kailas-cloud/profilesearch/internal/logger"
	"github.com/kailas-cloud/profilesearch/internal/metrics"
	"github.com/kailas-cloud/profilesearch/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/profilesearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/profilesearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/profilesearch/internal/usecase/health"
	profileuc "github.com/kailas-cloud/profilesearch/internal/usecase/profile"
)

// app is the composition root shared by every command.
type app struct {
	env      string
	cfg      config.Config
	logger   *zap.Logger
	source   corpus.CSVFile
	embedder domain.Embedder
	profiles *profileuc.Service
	health   *healthuc.Service

	sqlite *sqlitedb.Store
	cache  *dbRedis.Store
}

// newApp loads configuration and wires every component. backend, when
// non-empty, overrides index.backend.
func newApp(ctx context.Context, backend string) (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, configError{fmt.Errorf("load config: %w", err)}
	}
	if backend != "" {
		cfg.Index.Backend = backend
		if err := cfg.Validate(); err != nil {
			return nil, configError{fmt.Errorf("invalid config: %w", err)}
		}
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, configError{fmt.Errorf("create logger: %w", err)}
	}

	a := &app{
		env:    env,
		cfg:    cfg,
		logger: logger,
		source: corpus.CSVFile{Path: cfg.Corpus.Path, Encoding: cfg.Corpus.Encoding},
	}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexMetrics()

	if len(a.cfg.Cache.Addrs) > 0 {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    a.cfg.Cache.Addrs,
			Password: a.cfg.Cache.Password,
		})
		if err != nil {
			return fmt.Errorf("create cache store: %w", err)
		}
		a.cache = cache
		timeout := time.Duration(a.cfg.Cache.ReadinessTimeout) * time.Second
		if err := cache.WaitForReady(ctx, timeout); err != nil {
			return fmt.Errorf("cache not ready: %w", err)
		}
		a.logger.Info("Connected to embedding cache", zap.Strings("addrs", a.cfg.Cache.Addrs))
	}

	vecName, vecCfg, provCfg := a.cfg.Vectorizer()
	a.embedder = a.buildEmbedder(vecCfg.Provider, provCfg, vecCfg)
	a.logger.Info("Embedder created",
		zap.String("vectorizer", vecName),
		zap.String("provider", vecCfg.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
		zap.Bool("cached", a.cache != nil),
	)

	builder, err := a.buildIndex(vecCfg.Model)
	if err != nil {
		return err
	}

	a.profiles = profileuc.New(a.embedder, builder, profileuc.Config{
		Vector: domain.VectorConfig{
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			BatchSize:  vecCfg.BatchSize,
		},
		MissingMarker: a.cfg.Corpus.MissingMarker,
	}, a.logger)

	opts := []healthuc.Option{healthuc.WithEmbedding(newEmbeddingHealthChecker(a.embedder))}
	if a.sqlite != nil {
		opts = append(opts, healthuc.WithDatabase(a.sqlite))
	}
	if a.cache != nil {
		opts = append(opts, healthuc.WithCache(a.cache))
	}
	a.health = healthuc.New(a.profiles, opts...)
	return nil
}

func (a *app) buildIndex(model string) (profileuc.IndexBuilder, error) {
	switch a.cfg.Index.Backend {
	case index.BackendMemory:
		return memindex.Builder{}, nil
	case index.BackendSQLite:
		path := a.cfg.Storage.SQLitePath
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlitedb.Open(path, sqlitedb.WithRetention(
			a.cfg.Storage.KeepGenerations,
			time.Duration(a.cfg.Storage.RetentionSec)*time.Second,
		))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.sqlite = store
		a.logger.Info("Opened index store", zap.String("path", path))
		return sqliteindex.Builder{Store: store, Model: model}, nil
	default:
		return nil, configError{fmt.Errorf("unknown index backend %q", a.cfg.Index.Backend)}
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// Corpus records and queries go through the same chain.
func (a *app) buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Timeout:    time.Duration(provCfg.TimeoutSec) * time.Second,
		Logger:     a.logger,
	})

	// Cached. a.cache is checked so a nil *Store never becomes a non-nil interface.
	var embedder domain.Embedder = base
	if a.cache != nil {
		ttl := time.Duration(a.cfg.Cache.TTLSec) * time.Second
		embedder = embcache.New(base, a.cache, vecCfg.Model, vecCfg.Dimensions, ttl, metrics.EmbeddingCacheTotal, a.logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, provName, vecCfg.Model, a.logger,
		embeddinguc.WithRateLimit(provCfg.RateLimit.RequestsPerSecond, provCfg.RateLimit.Burst),
		embeddinguc.WithBatchSize(vecCfg.BatchSize),
	)

	// Instruction prefix (outermost: cache key includes instruction)
	if vecCfg.Instruction != "" {
		return domain.NewInstructionEmbedder(embedder, vecCfg.Instruction)
	}
	return embedder
}

// warmUp brings the service to Ready: from the persisted generation when
// restore_on_start is set and it was built from the current corpus, otherwise
// by embedding the corpus.
func (a *app) warmUp(ctx context.Context) (profileuc.Stats, error) {
	if a.cfg.Index.RestoreOnStart {
		stats, err := a.profiles.Restore(ctx, a.source)
		switch {
		case err == nil:
			return stats, nil
		case errors.Is(err, profileuc.ErrCorpusChanged):
			a.logger.Info("Corpus changed since last index, re-embedding", zap.String("source", a.source.Describe()))
		default:
			a.logger.Warn("Restore failed, re-embedding corpus", zap.Error(err))
		}
	}
	return a.profiles.Load(ctx, a.source)
}

// Close releases stores and flushes the logger.
func (a *app) Close() {
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			a.logger.Warn("Close sqlite store", zap.Error(err))
		}
	}
	if a.cache != nil {
		a.cache.Close()
	}
	_ = a.logger.Sync()
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
