// Package redis builds the shared go-redis client used by the Redis session
// store and the Redis rate limit counter.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/devmarvs/bulwark/config"
)

// Options configures the client.
type Options struct {
	Address      string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// FromConfig maps the redis config section to Options.
func FromConfig(cfg config.Redis) Options {
	return Options{Address: cfg.Address, Password: cfg.Password, DB: cfg.DB}
}

// New creates a client with defaults applied. No connection is made until
// the first command.
func New(options Options) *goredis.Client {
	if options.Address == "" {
		options.Address = "127.0.0.1:6379"
	}
	if options.DialTimeout == 0 {
		options.DialTimeout = 2 * time.Second
	}
	if options.ReadTimeout == 0 {
		options.ReadTimeout = 2 * time.Second
	}
	if options.WriteTimeout == 0 {
		options.WriteTimeout = 2 * time.Second
	}

	return goredis.NewClient(&goredis.Options{
		Addr:         options.Address,
		Username:     options.Username,
		Password:     options.Password,
		DB:           options.DB,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
		PoolSize:     options.PoolSize,
	})
}

// Connect creates a client and verifies it with PING.
func Connect(ctx context.Context, options Options) (*goredis.Client, error) {
	client := New(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", options.Address, err)
	}
	return client, nil
}

// Key joins a configured prefix and a component prefix, so
// Key("app:", "sessions:") is "app:sessions:".
func Key(prefix, component string) string {
	return prefix + component
}
