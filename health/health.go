package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// CheckFunc runs a liveness or readiness check.
type CheckFunc func(context.Context) error

// CheckResult reports a single check.
type CheckResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Report is the body written by Handler and ReadyHandler.
type Report struct {
	Status     string        `json:"status"`
	Ready      bool          `json:"ready"`
	Checks     []CheckResult `json:"checks"`
	DurationMS int64         `json:"duration_ms"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout bounds every check.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Registry) {
		r.timeout = timeout
	}
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry stores the liveness and readiness checks of the security
// collaborators (session store, rate limit counter, identity store).
type Registry struct {
	mu      sync.RWMutex
	live    map[string]CheckFunc
	ready   map[string]CheckFunc
	timeout time.Duration
	now     func() time.Time
}

// New creates a Registry.
func New(options ...Option) *Registry {
	registry := &Registry{
		live:    make(map[string]CheckFunc),
		ready:   make(map[string]CheckFunc),
		timeout: 2 * time.Second,
		now:     time.Now,
	}
	for _, opt := range options {
		opt(registry)
	}
	return registry
}

// Add registers a liveness check.
func (r *Registry) Add(name string, check CheckFunc) {
	r.mu.Lock()
	r.live[name] = check
	r.mu.Unlock()
}

// AddReady registers a readiness check.
func (r *Registry) AddReady(name string, check CheckFunc) {
	r.mu.Lock()
	r.ready[name] = check
	r.mu.Unlock()
}

// Live runs the liveness checks.
func (r *Registry) Live(ctx context.Context) Report {
	return r.run(ctx, r.snapshot(r.live), false)
}

// Ready runs the readiness checks.
func (r *Registry) Ready(ctx context.Context) Report {
	return r.run(ctx, r.snapshot(r.ready), true)
}

// Handler serves liveness.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeReport(w, r.Live(req.Context()))
	})
}

// ReadyHandler serves readiness.
func (r *Registry) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeReport(w, r.Ready(req.Context()))
	})
}

func (r *Registry) run(ctx context.Context, checks map[string]CheckFunc, ready bool) Report {
	start := r.now()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := Report{Status: "ok", Ready: ready, Checks: make([]CheckResult, 0, len(names))}
	for _, name := range names {
		result := r.runCheck(ctx, checks[name])
		result.Name = name
		if result.Status != "ok" {
			report.Status = "fail"
		}
		report.Checks = append(report.Checks, result)
	}

	report.CheckedAt = r.now().UTC()
	report.DurationMS = report.CheckedAt.Sub(start).Milliseconds()
	return report
}

func (r *Registry) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	if check == nil {
		return CheckResult{Status: "ok"}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := r.now()
	err := check(ctx)
	result := CheckResult{Status: "ok", DurationMS: r.now().Sub(start).Milliseconds()}
	if err != nil {
		result.Status = "fail"
		result.Error = err.Error()
	}
	return result
}

func (r *Registry) snapshot(source map[string]CheckFunc) map[string]CheckFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]CheckFunc, len(source))
	for name, check := range source {
		out[name] = check
	}
	return out
}

func writeReport(w http.ResponseWriter, report Report) {
	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
