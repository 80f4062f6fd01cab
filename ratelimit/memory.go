package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter keeps windows in process memory. The map mutex is held only
// to find or create an entry; each entry's own mutex serializes its update.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	mu      sync.Mutex
	start   time.Time
	count   int64
	removed bool
}

// NewMemoryCounter creates an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*memoryWindow)}
}

// Hit implements Counter.
func (c *MemoryCounter) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}

	for {
		entry := c.entry(key)

		entry.mu.Lock()
		if entry.removed {
			entry.mu.Unlock()
			continue
		}
		if entry.count == 0 || expired(entry.start, now, window) {
			entry.start = now
			entry.count = 1
		} else {
			entry.count++
		}
		result := Window{Key: key, Start: entry.start, Count: entry.count}
		entry.mu.Unlock()
		return result, nil
	}
}

func (c *MemoryCounter) entry(key string) *memoryWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.windows[key]
	if !ok {
		entry = &memoryWindow{}
		c.windows[key] = entry
	}
	return entry
}

// Prune drops windows that the next hit would reset anyway and returns how
// many were removed.
func (c *MemoryCounter) Prune(now time.Time, window time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.windows {
		entry.mu.Lock()
		if entry.count == 0 || expired(entry.start, now, window) {
			entry.removed = true
			delete(c.windows, key)
			removed++
		}
		entry.mu.Unlock()
	}
	return removed
}

// Sweep prunes expired windows every interval until ctx is done. report, if
// set, receives the number removed by each pass.
func (c *MemoryCounter) Sweep(ctx context.Context, interval, window time.Duration, report func(removed int)) {
	if window <= 0 {
		window = DefaultWindow
	}
	if interval <= 0 {
		interval = window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := c.Prune(now, window)
			if report != nil {
				report(removed)
			}
		}
	}
}

// Len returns the number of tracked keys.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}
