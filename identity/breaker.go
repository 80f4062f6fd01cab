package identity

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerOptions configures BreakerLookup.
type BreakerOptions struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	OnStateChange       func(name string, from, to gobreaker.State)
}

// BreakerLookup stops calling an unhealthy identity store once it fails
// repeatedly. ErrNotFound and caller cancellation are successful outcomes
// for the breaker.
type BreakerLookup struct {
	next    Lookup
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerLookup wraps next with a circuit breaker.
func NewBreakerLookup(next Lookup, options BreakerOptions) *BreakerLookup {
	if options.Name == "" {
		options.Name = "identity"
	}
	if options.ConsecutiveFailures == 0 {
		options.ConsecutiveFailures = 5
	}
	if options.OpenTimeout <= 0 {
		options.OpenTimeout = 30 * time.Second
	}

	threshold := options.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:    options.Name,
		Timeout: options.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: options.OnStateChange,
	}
	return &BreakerLookup{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Find implements Lookup.
func (b *BreakerLookup) Find(ctx context.Context, subjectID string) (Record, error) {
	value, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Find(ctx, subjectID)
	})
	if err != nil {
		return Record{}, err
	}
	return value.(Record), nil
}

// State reports the breaker state.
func (b *BreakerLookup) State() gobreaker.State {
	return b.breaker.State()
}
