package pipeline

import (
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/devmarvs/bulwark/auth"
	"github.com/devmarvs/bulwark/config"
	"github.com/devmarvs/bulwark/identity"
	"github.com/devmarvs/bulwark/middleware"
	"github.com/devmarvs/bulwark/ratelimit"
	"github.com/devmarvs/bulwark/redis"
	"github.com/devmarvs/bulwark/session"
)

// Dependencies are the runtime collaborators FromConfig cannot build from
// configuration alone.
type Dependencies struct {
	// Redis backs the redis session and rate limit backends.
	Redis      *goredis.Client
	Identities identity.Lookup
	Recorder   middleware.DecisionRecorder
}

// FromConfig builds a pipeline from configuration.
func FromConfig(cfg config.Config, deps Dependencies) (*Pipeline, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("pipeline: jwt secret is required")
	}
	if deps.Identities == nil {
		return nil, errors.New("pipeline: identity lookup is required")
	}

	counter, err := newCounter(cfg, deps.Redis)
	if err != nil {
		return nil, err
	}
	sessions, err := newSessionStore(cfg, deps.Redis)
	if err != nil {
		return nil, err
	}

	verifier := &auth.JWTVerifier{
		Keys:     auth.JWTKeySet{Primary: auth.JWTKey{ID: cfg.JWT.KeyID, Secret: []byte(cfg.JWT.Secret)}},
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   cfg.JWT.Leeway.Std(),
	}
	authenticator := auth.NewAuthenticator(verifier, deps.Identities)
	authenticator.Timeout = cfg.JWT.Timeout.Std()

	return New(Options{
		CORS: middleware.CORSOptions{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:         cfg.CORS.MaxAge.Std(),
		},
		Limiter:       ratelimit.New(counter, cfg.RateLimit.Window.Std()),
		Limit:         cfg.RateLimit.Limit,
		RateLimit:     []middleware.RateLimitOption{middleware.RateLimitTrustProxy(cfg.RateLimit.TrustProxy)},
		Sessions:      sessions,
		Authenticator: authenticator,
		Recorder:      deps.Recorder,
	})
}

func newCounter(cfg config.Config, client *goredis.Client) (ratelimit.Counter, error) {
	switch strings.ToLower(cfg.RateLimit.Backend) {
	case "", config.BackendMemory:
		return ratelimit.NewMemoryCounter(), nil
	case config.BackendRedis:
		if client == nil {
			return nil, errors.New("pipeline: redis client is required for the redis rate limit backend")
		}
		return ratelimit.NewRedisCounter(client, redis.Key(cfg.Redis.Prefix, "ratelimit:"))
	default:
		return nil, fmt.Errorf("pipeline: unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}

func newSessionStore(cfg config.Config, client *goredis.Client) (session.Store, error) {
	cookie := []session.Option{session.WithSecure(cfg.Session.Secure)}

	switch strings.ToLower(cfg.Session.Backend) {
	case "", config.BackendMemory:
		return session.NewMemoryStore(cfg.Session.Name, cfg.Session.TTL.Std(), cookie...), nil
	case config.BackendRedis:
		if client == nil {
			return nil, errors.New("pipeline: redis client is required for the redis session backend")
		}
		return session.NewRedisStore(session.RedisOptions{
			Client: client,
			Name:   cfg.Session.Name,
			TTL:    cfg.Session.TTL.Std(),
			Prefix: redis.Key(cfg.Redis.Prefix, "sessions:"),
			Cookie: cookie,
		})
	default:
		return nil, fmt.Errorf("pipeline: unknown session backend %q", cfg.Session.Backend)
	}
}
