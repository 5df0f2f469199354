package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/config"
	dbMongo "github.com/kailas-cloud/docquery/internal/db/mongo"
	dbRedis "github.com/kailas-cloud/docquery/internal/db/redis"
	"github.com/kailas-cloud/docquery/internal/domain"
	logpkg "github.com/kailas-cloud/docquery/internal/logger"
	"github.com/kailas-cloud/docquery/internal/metrics"
	"github.com/kailas-cloud/docquery/internal/repository/embcache"
	"github.com/kailas-cloud/docquery/internal/repository/embfile"
	openaiTransport "github.com/kailas-cloud/docquery/internal/transport/openai"
	"github.com/kailas-cloud/docquery/internal/usecase/assistant"
	"github.com/kailas-cloud/docquery/internal/usecase/compiler"
	"github.com/kailas-cloud/docquery/internal/usecase/dispatch"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
	"github.com/kailas-cloud/docquery/internal/usecase/llm"
	metadatauc "github.com/kailas-cloud/docquery/internal/usecase/metadata"
	"github.com/kailas-cloud/docquery/internal/usecase/ranker"
	"github.com/kailas-cloud/docquery/internal/usecase/safety"
	"github.com/kailas-cloud/docquery/internal/version"
)

// app is the composition root shared by every subcommand.
type app struct {
	env       string
	cfg       config.Config
	logger    *zap.Logger
	store     *dbMongo.Store
	cache     *dbRedis.Store
	catalog   *metadatauc.Service
	ranker    *ranker.Ranker
	assistant *assistant.Service
	health    *healthuc.Service
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.New(logpkg.Config{Env: env, Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger}

	// Register metrics explicitly (no init())
	metrics.Register()

	a.store, err = dbMongo.NewStore(ctx, dbMongo.Config{
		URI:                    cfg.Database.URI,
		Database:               cfg.Database.Name,
		ServerSelectionTimeout: time.Duration(cfg.Database.ReadinessTimeout) * time.Second,
		AppName:                "docquery",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document store: %w", err)
	}
	if err := a.store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		a.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.String("database", cfg.Database.Name))

	recorder := metrics.Recorder{}
	gate := safety.New(recorder)
	dispatcher := dispatch.New(a.store, gate, dispatch.Config{
		Limit:   cfg.Database.Limit,
		Timeout: time.Duration(cfg.Database.QueryTimeoutSec) * time.Second,
	}, recorder)
	rules := compiler.New(compiler.Policy{
		DefaultSalesStatus: cfg.Compiler.SalesStatus(),
		Limit:              cfg.Compiler.Limit,
	})
	a.catalog = metadatauc.New(a.store, logger)
	a.health = healthuc.New(a.store, healthuc.DefaultCheckTimeout)

	mode, err := assistant.ParseMode(cfg.Assistant.Mode)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Pass nil interfaces (not typed nil pointers) when a model is not configured.
	var (
		rank      assistant.Ranker
		generator domain.Generator
	)
	if mode != assistant.ModeRules && cfg.Embedding.Enabled() {
		embedder, err := a.buildEmbedder()
		if err != nil {
			a.Close()
			return nil, err
		}
		var indexStore ranker.IndexStore
		if cfg.Embedding.IndexPath != "" {
			indexStore = embfile.New(cfg.Embedding.IndexPath)
		}
		a.ranker = ranker.New(embedder, indexStore, ranker.Policy{
			TopK:        cfg.Ranker.TopK,
			FieldTopK:   cfg.Ranker.FieldTopK,
			MinTopScore: cfg.Ranker.MinTopScore,
			MinScore:    cfg.Ranker.MinScore,
		}, cfg.Embedding.Model, logger).WithQueryInstruction(cfg.Embedding.QueryInstruction)
		rank = a.ranker
	}
	if mode != assistant.ModeRules && cfg.LLM.Enabled() {
		generator = a.buildGenerator(recorder)
	}

	a.assistant = assistant.New(gate, rules, dispatcher, a.catalog, rank, generator, recorder, assistant.Config{
		Mode:              mode,
		Templates:         cfg.Assistant.TemplatesEnabled(),
		Temperature:       cfg.LLM.Temperature,
		StrictModelErrors: cfg.Assistant.StrictModelErrors,
	}, logger)

	logger.Info("Assistant configured",
		zap.String("mode", string(mode)),
		zap.Bool("templates", cfg.Assistant.TemplatesEnabled()),
		zap.Bool("embedding", rank != nil),
		zap.Bool("llm", generator != nil),
		zap.Bool("cache", a.cache != nil),
		zap.String("version", version.Version),
	)
	return a, nil
}

// buildEmbedder creates the provider embedder, wrapped in the Redis/Valkey
// cache when cache addresses are configured.
func (a *app) buildEmbedder() (domain.Embedder, error) {
	cfg := a.cfg.Embedding
	provider := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		MaxBatch:   cfg.MaxBatch,
		Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:     a.logger,
	})
	a.health.WithProvider("embedding", provider)

	if len(a.cfg.Cache.Addrs) == 0 {
		return provider, nil
	}
	cache, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    a.cfg.Cache.Addrs,
		Username: a.cfg.Cache.Username,
		Password: a.cfg.Cache.Password,
		DB:       a.cfg.Cache.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	a.cache = cache
	a.health.WithPinger("cache", cache)
	return embcache.New(provider, cache, cfg.Model, a.cfg.Cache.TTL, metrics.EmbeddingCacheTotal, a.logger), nil
}

func (a *app) buildGenerator(observer llm.Observer) domain.Generator {
	cfg := a.cfg.LLM
	provider := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Provider:  cfg.Provider,
		Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:    a.logger,
	})
	a.health.WithProvider("llm", provider)

	return llm.New(provider, llm.Config{
		Name:             "llm_" + cfg.Provider,
		Timeout:          time.Duration(cfg.TimeoutSec) * time.Second,
		MaxAttempts:      cfg.MaxAttempts,
		Interval:         time.Duration(cfg.Breaker.IntervalSec) * time.Second,
		OpenTimeout:      time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		MinRequests:      cfg.Breaker.MinRequests,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	}, observer, a.logger)
}

// warmUp builds the metadata snapshot and publishes an embedding index,
// loading the persisted one when it matches the configured model.
func (a *app) warmUp(ctx context.Context) error {
	snap, err := a.catalog.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("metadata refresh: %w", err)
	}
	a.logger.Info("Metadata snapshot built", zap.Int("collections", snap.Len()))

	if a.ranker == nil {
		return nil
	}
	loaded, err := a.ranker.Load(ctx)
	if err != nil {
		a.logger.Warn("Failed to load embedding index, rebuilding", zap.Error(err))
	}
	if loaded {
		a.logger.Info("Embedding index loaded", zap.Int("entries", a.ranker.Index().Len()))
		return nil
	}
	ix, err := a.ranker.Build(ctx, snap)
	if err != nil {
		// the rules path still answers; the model path falls back until a refresh succeeds
		a.logger.Warn("Failed to build embedding index", zap.Error(err))
		return nil
	}
	a.logger.Info("Embedding index built", zap.Int("entries", ix.Len()))
	return nil
}

// Close releases store connections and flushes the logger.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.logger.Warn("Failed to close document store", zap.Error(err))
		}
	}
	if a.cache != nil {
		a.cache.Close()
	}
	_ = a.logger.Sync()
}
