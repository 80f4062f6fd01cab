package health

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// ErrBreakerOpen reports an identity breaker that stopped calling its store.
var ErrBreakerOpen = errors.New("health: circuit breaker open")

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Redis checks a Redis client with PING.
func Redis(client goredis.Cmdable) CheckFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("health: redis client not configured")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}
}

// Ping checks a pool such as the identity Postgres pool.
func Ping(name string, pinger Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if pinger == nil {
			return fmt.Errorf("health: %s not configured", name)
		}
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

// Breaker fails while the breaker reporting state is open.
func Breaker(state func() gobreaker.State) CheckFunc {
	return func(context.Context) error {
		if state != nil && state() == gobreaker.StateOpen {
			return ErrBreakerOpen
		}
		return nil
	}
}
