package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces counter keys.
const DefaultRedisPrefix = "bulwark:ratelimit:"

// hitScript applies the window rule server-side so the read-modify-write is
// atomic across every process sharing the Redis instance. Times are in
// milliseconds; keys expire after two windows of inactivity.
var hitScript = goredis.NewScript(`
local start = tonumber(redis.call("HGET", KEYS[1], "start"))
local count = tonumber(redis.call("HGET", KEYS[1], "count"))
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if start == nil or count == nil or (now - start) > window then
  start = now
  count = 1
else
  count = count + 1
end
redis.call("HSET", KEYS[1], "start", start, "count", count)
redis.call("PEXPIRE", KEYS[1], window * 2)
return {start, count}
`)

// RedisCounter shares windows across processes through Redis.
type RedisCounter struct {
	client goredis.Scripter
	prefix string
}

// NewRedisCounter creates a Redis-backed counter. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisCounter(client goredis.Scripter, prefix string) (*RedisCounter, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCounter{client: client, prefix: prefix}, nil
}

// Hit implements Counter.
func (c *RedisCounter) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	values, err := hitScript.Run(ctx, c.client, []string{c.prefix + key}, now.UnixMilli(), window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("ratelimit: redis hit: %w", err)
	}
	if len(values) != 2 {
		return Window{}, fmt.Errorf("ratelimit: unexpected redis reply %v", values)
	}
	return Window{Key: key, Start: time.UnixMilli(values[0]), Count: values[1]}, nil
}
