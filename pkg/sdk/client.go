package docquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbMongo "github.com/kailas-cloud/docquery/internal/db/mongo"
	"github.com/kailas-cloud/docquery/internal/domain"
	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/repository/embfile"
	"github.com/kailas-cloud/docquery/internal/usecase/assistant"
	"github.com/kailas-cloud/docquery/internal/usecase/compiler"
	"github.com/kailas-cloud/docquery/internal/usecase/dispatch"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
	metadatauc "github.com/kailas-cloud/docquery/internal/usecase/metadata"
	"github.com/kailas-cloud/docquery/internal/usecase/ranker"
	"github.com/kailas-cloud/docquery/internal/usecase/safety"
)

const defaultReadinessTimeout = 10 * time.Second

// Внутренние интерфейсы для подмены в тестах.
type assistantUseCase interface {
	Ask(ctx context.Context, question string) (*assistant.Answer, error)
	Compile(question string) (query.Compiled, error)
	Collections() *dommeta.Snapshot
	Refresh(ctx context.Context) (assistant.RefreshReport, error)
}

// documentStore is everything the pipeline needs from the database.
type documentStore interface {
	dispatch.Store
	metadatauc.Store
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ documentStore = (*dbMongo.Store)(nil)

// Client is the docquery SDK entry point.
type Client struct {
	store     documentStore
	svc       assistantUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
// Call Refresh before the first Ask.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.uri == "" || cfg.database == "" {
		return nil, errors.New("docquery: database required (use WithMongo)")
	}

	store, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:                    cfg.uri,
		Database:               cfg.database,
		ServerSelectionTimeout: defaultReadinessTimeout,
		AppName:                "docquery-sdk",
	})
	if err != nil {
		return nil, fmt.Errorf("docquery: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("docquery: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return wireClient(store, cfg, obs)
}

func wireClient(store documentStore, cfg *clientConfig, obs *observer) (*Client, error) {
	mode, err := assistant.ParseMode(cfg.mode)
	if err != nil {
		return nil, fmt.Errorf("docquery: %w", err)
	}

	policy := compiler.DefaultPolicy()
	if cfg.salesStatus != nil {
		policy.DefaultSalesStatus = *cfg.salesStatus
	}
	if cfg.limit > 0 {
		policy.Limit = cfg.limit
	}

	// SDK logs through slog; the internal services stay silent
	log := zap.NewNop()
	gate := safety.New(nil)
	dispatcher := dispatch.New(store, gate, dispatch.Config{Limit: policy.Limit}, nil)
	catalog := metadatauc.New(store, log)
	healthSvc := healthuc.New(store, healthuc.DefaultCheckTimeout)

	// nil interfaces, not typed nil pointers
	var (
		rank      assistant.Ranker
		generator domain.Generator
	)
	if cfg.embedder != nil && mode != assistant.ModeRules {
		var indexStore ranker.IndexStore
		if cfg.indexPath != "" {
			indexStore = embfile.New(cfg.indexPath)
		}
		rank = ranker.New(adaptEmbedder(cfg.embedder), indexStore, ranker.DefaultPolicy(), cfg.embedModel, log).
			WithQueryInstruction(cfg.instruction)
		if checker, ok := cfg.embedder.(domain.HealthChecker); ok {
			healthSvc.WithProvider("embedding", checker)
		}
		if cfg.generator != nil {
			generator = &generatorAdapter{inner: cfg.generator}
		}
	}
	if mode == assistant.ModeModel && (rank == nil || generator == nil) {
		return nil, errors.New("docquery: mode \"model\" requires WithEmbedder and WithGenerator")
	}

	svc := assistant.New(gate, compiler.New(policy), dispatcher, catalog, rank, generator, nil, assistant.Config{
		Mode:              mode,
		Templates:         !cfg.noTemplates,
		Temperature:       cfg.temperature,
		StrictModelErrors: cfg.strict,
	}, log)

	return &Client{
		store:     store,
		svc:       svc,
		healthSvc: healthSvc,
		obs:       obs,
	}, nil
}

// Close releases the database connection.
func (c *Client) Close(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Close(ctx); err != nil {
		return fmt.Errorf("docquery: close: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", statusOK, start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ask answers one question. Declines are answers; errors are invalid
// questions, prohibited operations and, in strict mode, model failures.
func (c *Client) Ask(ctx context.Context, question string) (_ *Answer, err error) {
	start := time.Now()
	status := statusOK
	defer func() { c.obs.observe("ask", status, start, err) }()

	ans, err := c.svc.Ask(ctx, question)
	if err != nil {
		return nil, err
	}
	if ans.Declined {
		status = statusDeclined
	}
	return toAnswer(ans), nil
}

// Compile returns the rule engine's pipeline without running it.
func (c *Client) Compile(question string) (_ Compiled, err error) {
	start := time.Now()
	defer func() { c.obs.observe("compile", statusOK, start, err) }()

	compiled, err := c.svc.Compile(question)
	if err != nil {
		return Compiled{}, err
	}
	return toCompiled(compiled), nil
}

// Refresh re-samples every collection and rebuilds the embedding index.
// An index failure is reported in RefreshReport.IndexError.
func (c *Client) Refresh(ctx context.Context) (_ RefreshReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("refresh", statusOK, start, err) }()

	r, err := c.svc.Refresh(ctx)
	if err != nil {
		return RefreshReport{}, fmt.Errorf("refresh: %w", err)
	}
	return RefreshReport{
		Collections: r.Collections,
		BuiltAt:     r.BuiltAt,
		Indexed:     r.Indexed,
		IndexError:  r.IndexError,
	}, nil
}

// Collections lists the collections of the last refresh.
func (c *Client) Collections() []Collection {
	snap := c.svc.Collections()
	out := make([]Collection, 0, snap.Len())
	for _, m := range snap.Collections() {
		fields := make(map[string]string, len(m.Fields))
		for _, f := range m.Fields {
			fields[f.Name] = string(f.Type)
		}
		out = append(out, Collection{
			Name:          m.Name,
			DocumentCount: m.DocumentCount,
			Fields:        fields,
			Indexes:       m.Indexes,
		})
	}
	return out
}
