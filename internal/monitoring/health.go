package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string      `json:"component"`
	Status    ProbeStatus `json:"status"`
	Details   string      `json:"details,omitempty"`
	LatencyMS int64       `json:"latency_ms"`
}

// Report aggregates probe results. Status is the worst status observed.
type Report struct {
	Status ProbeStatus   `json:"status"`
	Checks []ProbeResult `json:"checks"`
}

// Healthy reports whether every dependency is usable, possibly degraded.
func (r Report) Healthy() bool {
	return r.Status != StatusDown
}

// Check is a named dependency probe. Run returns nil when the dependency is up.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
	// Optional dependencies report degraded instead of down.
	Optional bool
}

// Probes runs registered checks concurrently with a per-check timeout.
type Probes struct {
	mu      sync.RWMutex
	checks  []Check
	timeout time.Duration
}

// NewProbes returns an empty probe set. A non-positive timeout means 2s.
func NewProbes(timeout time.Duration) *Probes {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Probes{timeout: timeout}
}

// Register appends checks, ignoring unnamed ones.
func (p *Probes) Register(checks ...Check) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, check := range checks {
		if check.Name == "" || check.Run == nil {
			continue
		}
		p.checks = append(p.checks, check)
	}
}

// Evaluate runs every check and returns results in registration order.
func (p *Probes) Evaluate(ctx context.Context) Report {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.RLock()
	checks := append([]Check(nil), p.checks...)
	p.mu.RUnlock()

	results := make([]ProbeResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			results[i] = p.run(ctx, check)
		}(i, check)
	}
	wg.Wait()

	report := Report{Status: StatusUp, Checks: results}
	for _, result := range results {
		switch {
		case result.Status == StatusDown:
			report.Status = StatusDown
		case result.Status == StatusDegraded && report.Status == StatusUp:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (p *Probes) run(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			result = classify(check, fmt.Errorf("panic: %v", rec), time.Since(start))
		}
	}()
	return classify(check, check.Run(probeCtx), time.Since(start))
}

func classify(check Check, err error, elapsed time.Duration) ProbeResult {
	result := ProbeResult{Component: check.Name, Status: StatusUp, LatencyMS: elapsed.Milliseconds()}
	if err == nil {
		return result
	}
	result.Details = err.Error()
	switch {
	case check.Optional:
		result.Status = StatusDegraded
	case errors.Is(err, context.DeadlineExceeded):
		result.Status = StatusDegraded
	default:
		result.Status = StatusDown
	}
	return result
}
