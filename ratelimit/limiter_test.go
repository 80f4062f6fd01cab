package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devmarvs/bulwark/internal/redistest"
)

type step struct {
	at      time.Duration
	allowed bool
	count   int64
}

var windowScenario = []step{
	{0, true, 1},
	{time.Second, true, 2},
	{2 * time.Second, true, 3},
	{3 * time.Second, false, 4},
	{3600 * time.Second, false, 5},
	{3601 * time.Second, true, 1},
	{3602 * time.Second, true, 2},
}

func runScenario(t *testing.T, counter Counter) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var now time.Time
	limiter := &Limiter{Counter: counter, Window: 3600 * time.Second, Now: func() time.Time { return now }}

	for _, s := range windowScenario {
		now = base.Add(s.at)
		decision, err := limiter.Allow(context.Background(), "1.2.3.4", 3)
		if err != nil {
			t.Fatalf("t=%v: allow: %v", s.at, err)
		}
		if decision.Allowed != s.allowed {
			t.Fatalf("t=%v: expected allowed=%v, got %v", s.at, s.allowed, decision.Allowed)
		}
		if decision.Count != s.count {
			t.Fatalf("t=%v: expected count %d, got %d", s.at, s.count, decision.Count)
		}
	}
}

func TestLimiterScenarioMemory(t *testing.T) {
	runScenario(t, NewMemoryCounter())
}

func TestLimiterScenarioRedis(t *testing.T) {
	_, client := redistest.Start(t)
	counter, err := NewRedisCounter(client, "")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	runScenario(t, counter)
}

func TestLimiterLimitBoundary(t *testing.T) {
	limiter := New(NewMemoryCounter(), time.Minute)
	const limit = 5

	for i := 1; i <= limit+1; i++ {
		decision, err := limiter.Allow(context.Background(), "client", limit)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if i <= limit && !decision.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
		if i == limit+1 && decision.Allowed {
			t.Fatalf("request %d: expected denied", i)
		}
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter := New(NewMemoryCounter(), time.Minute)
	if d, _ := limiter.Allow(context.Background(), "a", 1); !d.Allowed {
		t.Fatalf("expected a allowed")
	}
	if d, _ := limiter.Allow(context.Background(), "a", 1); d.Allowed {
		t.Fatalf("expected a denied")
	}
	if d, _ := limiter.Allow(context.Background(), "b", 1); !d.Allowed {
		t.Fatalf("expected b allowed")
	}
}

func TestDecisionFields(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &Limiter{Counter: NewMemoryCounter(), Window: time.Hour, Now: func() time.Time { return now }}

	decision, err := limiter.Allow(context.Background(), "k", 3)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if decision.Remaining != 2 || decision.Limit != 3 {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if !decision.ResetAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected reset at %v, got %v", now.Add(time.Hour), decision.ResetAt)
	}
	if got := decision.RetryAfter(now.Add(30 * time.Minute)); got != 1800 {
		t.Fatalf("expected retry after 1800, got %d", got)
	}
	if got := decision.RetryAfter(now.Add(2 * time.Hour)); got != 1 {
		t.Fatalf("expected minimum retry after 1, got %d", got)
	}
}

func TestLimiterConcurrentHitsNeverOverAdmit(t *testing.T) {
	limiter := New(NewMemoryCounter(), time.Hour)
	const limit = 50
	const workers = 200

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Allow(context.Background(), "client", limit)
			if err == nil && decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != limit {
		t.Fatalf("expected exactly %d admitted, got %d", limit, allowed.Load())
	}
}

func TestLimiterConcurrentRedis(t *testing.T) {
	_, client := redistest.Start(t)
	counter, err := NewRedisCounter(client, "test:")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	limiter := New(counter, time.Hour)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Allow(context.Background(), "client", 10)
			if err == nil && decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 10 {
		t.Fatalf("expected exactly 10 admitted, got %d", allowed.Load())
	}
}

type failingCounter struct{}

func (failingCounter) Hit(context.Context, string, time.Time, time.Duration) (Window, error) {
	return Window{}, errors.New("connection refused")
}

func TestLimiterCounterError(t *testing.T) {
	limiter := New(failingCounter{}, 0)
	decision, err := limiter.Allow(context.Background(), "k", 10)
	if err == nil {
		t.Fatalf("expected error")
	}
	if decision.Allowed {
		t.Fatalf("expected denial on counter error")
	}
	if limiter.window() != DefaultWindow {
		t.Fatalf("expected default window")
	}
}
