// Package health aggregates component checks for the /health endpoint.
package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

type check struct {
	name     string
	critical bool
	fn       func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	checks  []check
	timeout time.Duration
}

// New creates a Service with the database as its only critical check.
func New(db Pinger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Service{
		checks:  []check{{name: "database", critical: true, fn: db.Ping}},
		timeout: timeout,
	}
}

// WithProvider adds a non-critical provider check. A nil checker is skipped.
func (s *Service) WithProvider(name string, c ProviderChecker) *Service {
	if c != nil {
		s.checks = append(s.checks, check{name: name, fn: c.HealthCheck})
	}
	return s
}

// WithPinger adds a non-critical store check, such as the cache. A nil pinger is skipped.
func (s *Service) WithPinger(name string, p Pinger) *Service {
	if p != nil {
		s.checks = append(s.checks, check{name: name, fn: p.Ping})
	}
	return s
}

// Check runs all checks concurrently, each under the check timeout.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.checks))
	var wg sync.WaitGroup
	for i, c := range s.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := c.fn(cctx); err != nil {
				results[i] = CheckError
				return
			}
			results[i] = CheckOK
		}()
	}
	wg.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.checks))}
	for i, c := range s.checks {
		report.Checks[c.name] = results[i]
		if results[i] != CheckError {
			continue
		}
		if c.critical {
			report.Status = Unhealthy
		} else if report.Status == Healthy {
			report.Status = Degraded
		}
	}
	return report
}
