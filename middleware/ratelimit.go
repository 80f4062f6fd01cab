package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/apperr"
	"github.com/devmarvs/bulwark/ratelimit"
)

// KeyFunc extracts a rate limiting key from the request.
type KeyFunc func(*bulwark.Context) string

// LimitHandler handles rate limit violations.
type LimitHandler func(*bulwark.Context, ratelimit.Decision) error

type rateLimitConfig struct {
	keyFunc    KeyFunc
	trustProxy bool
	onLimit    LimitHandler
	recorder   DecisionRecorder
}

// RateLimitOption customizes rate limit middleware behavior.
type RateLimitOption func(*rateLimitConfig)

// RateLimitKey sets the key function, e.g. to limit per account.
func RateLimitKey(fn KeyFunc) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.keyFunc = fn
	}
}

// RateLimitTrustProxy keys on the first X-Forwarded-For entry. Enable only
// behind a proxy that overwrites the header.
func RateLimitTrustProxy(enabled bool) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.trustProxy = enabled
	}
}

// RateLimitHandler sets the handler for limited requests.
func RateLimitHandler(fn LimitHandler) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.onLimit = fn
	}
}

// RateLimitRecorder reports rate limit outcomes.
func RateLimitRecorder(recorder DecisionRecorder) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.recorder = recorder
	}
}

// RateLimit admits at most limit requests per client per limiter window.
// Counter failures deny the request with 503.
func RateLimit(limiter *ratelimit.Limiter, limit int, options ...RateLimitOption) bulwark.Middleware {
	var cfg rateLimitConfig
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.keyFunc == nil {
		trustProxy := cfg.trustProxy
		cfg.keyFunc = func(ctx *bulwark.Context) string {
			return clientIP(ctx.Request, trustProxy)
		}
	}

	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			if limiter == nil {
				return apperr.Internal("rate limiter not configured", nil)
			}

			key := cfg.keyFunc(ctx)
			if key == "" {
				key = "unknown"
			}
			client := slog.String("client", clientIP(ctx.Request, cfg.trustProxy))

			decision, err := limiter.Allow(ctx.Request.Context(), key, limit)
			if err != nil {
				fail(ctx, cfg.recorder, StageRateLimit, err, client, slog.String("key", key))
				return apperr.Unavailable("rate limiter unavailable", err)
			}

			header := ctx.ResponseWriter.Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				header.Set("Retry-After", strconv.Itoa(decision.RetryAfter(limiterNow(limiter))))
				deny(ctx, cfg.recorder, StageRateLimit, "limit exceeded",
					client,
					slog.String("key", key),
					slog.Int64("count", decision.Count),
				)
				if cfg.onLimit != nil {
					return cfg.onLimit(ctx, decision)
				}
				return apperr.RateLimited("rate limit exceeded", ratelimit.ErrExceeded)
			}

			record(cfg.recorder, StageRateLimit, OutcomeAllow)
			return next(ctx)
		}
	}
}

func limiterNow(limiter *ratelimit.Limiter) time.Time {
	if limiter.Now != nil {
		return limiter.Now()
	}
	return time.Now()
}

// clientIP returns the caller address, preferring the first forwarded hop
// only when the proxy is trusted.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
