// Package ratelimit implements per-client request quotas over a window that
// resets once its age exceeds the configured duration.
package ratelimit

import (
	"context"
	"time"
)

// DefaultWindow is the window duration used when none is configured.
const DefaultWindow = time.Hour

// Window is the post-update state of one client's counter.
type Window struct {
	Key   string
	Start time.Time
	Count int64
}

// Counter atomically applies the window rule for one hit: a missing window
// or one older than window starts over at count 1, otherwise count is
// incremented. Implementations must never lose increments under concurrent
// hits on the same key.
type Counter interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error)
}

// expired reports whether a window started at start must be reset at now.
func expired(start, now time.Time, window time.Duration) bool {
	return now.Sub(start) > window
}
