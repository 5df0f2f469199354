// Package llm wraps a language model client with a circuit breaker, a call
// deadline and bounded retries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/logger"
)

// Observer records generation outcomes. status is "ok", "error" or "open".
type Observer interface {
	ObserveGeneration(status string, elapsed time.Duration)
	BreakerState(name string, state string)
}

// Config tunes the wrapper. Zero values take defaults.
type Config struct {
	Name             string
	Timeout          time.Duration
	MaxAttempts      int
	Backoff          time.Duration
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// DefaultConfig returns the standard resilience settings.
func DefaultConfig() Config {
	return Config{
		Name:             "llm",
		Timeout:          30 * time.Second,
		MaxAttempts:      2,
		Backoff:          250 * time.Millisecond,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		OpenTimeout:      30 * time.Second,
		MinRequests:      5,
		FailureThreshold: 0.6,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Backoff <= 0 {
		c.Backoff = d.Backoff
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = d.MaxRequests
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.MinRequests == 0 {
		c.MinRequests = d.MinRequests
	}
	if c.FailureThreshold <= 0 || c.FailureThreshold > 1 {
		c.FailureThreshold = d.FailureThreshold
	}
	return c
}

// ResilientGenerator is a domain.Generator decorator.
type ResilientGenerator struct {
	inner    domain.Generator
	cb       *gobreaker.CircuitBreaker
	cfg      Config
	observer Observer
	logger   *zap.Logger
}

var _ domain.Generator = (*ResilientGenerator)(nil)

// New wraps inner. observer may be nil.
func New(inner domain.Generator, cfg Config, observer Observer, log *zap.Logger) *ResilientGenerator {
	cfg = cfg.withDefaults()
	g := &ResilientGenerator{inner: inner, cfg: cfg, observer: observer, logger: log}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("LLM circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if observer != nil {
				observer.BreakerState(name, to.String())
			}
		},
	})
	return g
}

// State returns the breaker state name: "closed", "half-open" or "open".
func (g *ResilientGenerator) State() string {
	return g.cb.State().String()
}

// Generate calls the inner generator through the breaker. Provider failures
// wrap domain.ErrLLMProviderError.
func (g *ResilientGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		text, err := g.once(ctx, req)
		if err == nil {
			g.observe("ok", start)
			return text, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.observe("open", start)
			return "", fmt.Errorf("%w: circuit %s: %w", domain.ErrLLMProviderError, g.cfg.Name, err)
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < g.cfg.MaxAttempts {
			logger.FromContext(ctx).Warn("LLM request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if !sleep(ctx, g.cfg.Backoff*time.Duration(attempt)) {
				break
			}
		}
	}

	g.observe("error", start)
	if errors.Is(lastErr, domain.ErrLLMProviderError) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %w", domain.ErrLLMProviderError, lastErr)
}

func (g *ResilientGenerator) once(ctx context.Context, req domain.GenerateRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	out, err := g.cb.Execute(func() (any, error) {
		return g.inner.Generate(callCtx, req)
	})
	if err != nil {
		return "", err
	}
	text, _ := out.(string)
	return text, nil
}

func (g *ResilientGenerator) observe(status string, start time.Time) {
	if g.observer != nil {
		g.observer.ObserveGeneration(status, time.Since(start))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
