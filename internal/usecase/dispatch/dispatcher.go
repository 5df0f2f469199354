// Package dispatch executes gated read commands and normalizes their results.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/logger"
)

// Defaults applied by New.
const (
	DefaultLimit   = 10
	DefaultTimeout = 10 * time.Second
)

// Config bounds dispatched commands.
type Config struct {
	Limit   int
	Timeout time.Duration
}

// Dispatcher is the single execution path to the store.
type Dispatcher struct {
	store    Store
	gate     Gate
	limit    int
	timeout  time.Duration
	observer Observer
}

// New creates a Dispatcher. observer can be nil. Limit is capped at
// DefaultLimit.
func New(store Store, gate Gate, cfg Config, observer Observer) *Dispatcher {
	if cfg.Limit <= 0 || cfg.Limit > DefaultLimit {
		cfg.Limit = DefaultLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Dispatcher{
		store:    store,
		gate:     gate,
		limit:    cfg.Limit,
		timeout:  cfg.Timeout,
		observer: observer,
	}
}

// Execute gates cmd and runs it. The returned error is non-nil only when
// the gate rejects the argument; store failures are reported in the
// result's error descriptor.
func (d *Dispatcher) Execute(ctx context.Context, cmd query.Command) (query.ExecutionResult, error) {
	log := logger.FromContext(ctx).With(
		zap.String("collection", cmd.Collection),
		zap.String("operation", string(cmd.Operation)),
	)

	if err := d.gate.CheckArgument(cmd.Argument()); err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			// unserializable argument: fails closed, reported like a store error
			d.observe(cmd.Operation, "error", 0)
			log.Warn("query argument invalid", zap.Error(err))
			return query.Failure(err.Error()), nil
		}
		d.observe(cmd.Operation, "rejected", 0)
		log.Warn("query rejected", zap.Error(err))
		return query.ExecutionResult{}, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	docs, err := d.run(ctx, cmd)
	elapsed := time.Since(start)
	if err != nil {
		d.observe(cmd.Operation, "error", elapsed)
		log.Warn("query failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return query.Failure(d.describe(err)), nil
	}

	if len(docs) > d.limit {
		docs = docs[:d.limit]
	}
	out := make([]query.Document, len(docs))
	for i, doc := range docs {
		out[i] = NormalizeDocument(doc)
	}

	d.observe(cmd.Operation, "ok", elapsed)
	log.Debug("query executed", zap.Int("documents", len(out)), zap.Duration("elapsed", elapsed))
	return query.ExecutionResult{Documents: out}, nil
}

func (d *Dispatcher) run(ctx context.Context, cmd query.Command) ([]map[string]any, error) {
	switch cmd.Operation {
	case query.OpFind:
		filter, err := toFilter(cmd.Filter)
		if err != nil {
			return nil, err
		}
		return d.store.Find(ctx, cmd.Collection, filter, int64(d.limit))

	case query.OpCount, query.OpCountDocuments:
		filter, err := toFilter(cmd.Filter)
		if err != nil {
			return nil, err
		}
		n, err := d.store.CountDocuments(ctx, cmd.Collection, filter)
		if err != nil {
			return nil, err
		}
		return []map[string]any{{
			"count":       n,
			"description": fmt.Sprintf("Total documents in %s matching query", cmd.Collection),
		}}, nil

	case query.OpAggregate:
		stages := make([]map[string]any, 0, len(cmd.Pipeline))
		for i, st := range cmd.Pipeline {
			conv, err := ConvertExtendedJSON(st)
			if err != nil {
				return nil, fmt.Errorf("stage %d: %w", i, err)
			}
			m, _ := conv.(map[string]any)
			stages = append(stages, m)
		}
		return d.store.Aggregate(ctx, cmd.Collection, stages, d.limit)

	default:
		return nil, fmt.Errorf("unsupported operation %q", cmd.Operation)
	}
}

func (d *Dispatcher) describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("query timed out after %s", d.timeout)
	}
	return err.Error()
}

func (d *Dispatcher) observe(op query.Operation, status string, elapsed time.Duration) {
	if d.observer != nil {
		d.observer.ObserveQuery(string(op), status, elapsed)
	}
}

func toFilter(doc query.Document) (map[string]any, error) {
	if doc == nil {
		return map[string]any{}, nil
	}
	conv, err := ConvertExtendedJSON(doc)
	if err != nil {
		return nil, err
	}
	m, _ := conv.(map[string]any)
	return m, nil
}
