package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExceeded is reported when a client is over its quota.
var ErrExceeded = errors.New("rate limit exceeded")

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns whole seconds until the window resets, at least one.
func (d Decision) RetryAfter(now time.Time) int {
	seconds := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Limiter admits at most limit requests per key per window.
type Limiter struct {
	Counter Counter
	Window  time.Duration
	Now     func() time.Time
}

// New creates a limiter; a non-positive window uses DefaultWindow.
func New(counter Counter, window time.Duration) *Limiter {
	return &Limiter{Counter: counter, Window: window}
}

// Allow records a hit for key and reports whether it is within limit. A
// denied hit is still counted, so an over-limit client stays denied until
// its window resets. Counter errors are returned as-is and the caller must
// treat them as a denial.
func (l *Limiter) Allow(ctx context.Context, key string, limit int) (Decision, error) {
	if l == nil || l.Counter == nil {
		return Decision{Limit: limit}, errors.New("ratelimit: counter not configured")
	}

	window := l.window()
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}

	state, err := l.Counter.Hit(ctx, key, now, window)
	if err != nil {
		return Decision{Limit: limit}, fmt.Errorf("ratelimit: %w", err)
	}

	decision := Decision{
		Allowed: state.Count <= int64(limit),
		Count:   state.Count,
		Limit:   limit,
		ResetAt: state.Start.Add(window),
	}
	if remaining := int64(limit) - state.Count; remaining > 0 {
		decision.Remaining = int(remaining)
	}
	return decision, nil
}

// EffectiveWindow returns the window Allow uses.
func (l *Limiter) EffectiveWindow() time.Duration {
	return l.window()
}

func (l *Limiter) window() time.Duration {
	if l.Window <= 0 {
		return DefaultWindow
	}
	return l.Window
}
