package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/config"
	"github.com/devmarvs/bulwark/health"
	"github.com/devmarvs/bulwark/identity"
	"github.com/devmarvs/bulwark/metrics"
	"github.com/devmarvs/bulwark/middleware"
	"github.com/devmarvs/bulwark/pipeline"
	"github.com/devmarvs/bulwark/ratelimit"
	"github.com/devmarvs/bulwark/redis"
	"github.com/devmarvs/bulwark/tracing"
)

type server struct {
	app     *bulwark.App
	metrics *metrics.Registry
	health  *health.Registry
	counter *ratelimit.MemoryCounter
	closers []func()
}

// newServer wires the collaborators named by cfg. Identity records come
// from Postgres when a DSN is configured, otherwise from memory.
func newServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*server, error) {
	srv := &server{metrics: metrics.New(), health: health.New()}

	var client *goredis.Client
	if usesRedis(cfg) {
		client = redis.New(redis.FromConfig(cfg.Redis))
		srv.closers = append(srv.closers, func() { _ = client.Close() })
		srv.health.AddReady("redis", health.Redis(client))
	}

	identities, err := srv.identities(ctx, cfg, logger)
	if err != nil {
		srv.Close()
		return nil, err
	}

	p, err := pipeline.FromConfig(cfg, pipeline.Dependencies{
		Redis:      client,
		Identities: identities,
		Recorder:   srv.metrics,
	})
	if err != nil {
		srv.Close()
		return nil, err
	}

	srv.sweep(p.Limiter(), logger)

	srv.app = bulwark.New(bulwark.WithConfig(cfg), bulwark.WithLogger(logger))
	srv.app.Use(
		middleware.RequestID(),
		middleware.Recover(),
		middleware.LoggerWithOptions(middleware.LoggerOptions{SkipPaths: []string{"/healthz", "/readyz", "/metrics"}}),
		middleware.Metrics(srv.metrics),
		middleware.TraceWithOptions(middleware.DefaultTraceOptions(tracing.NewTracer(nil, ""))),
	)
	p.Install(srv.app)

	if err := srv.routes(p); err != nil {
		srv.Close()
		return nil, err
	}
	return srv, nil
}

func (s *server) identities(ctx context.Context, cfg config.Config, logger *slog.Logger) (identity.Lookup, error) {
	if cfg.Identity.DSN == "" {
		logger.Warn("identity dsn not configured, using in-memory identities")
		return identity.NewMemoryLookup(), nil
	}

	pool, err := identity.Connect(ctx, cfg.Identity.DSN)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, pool.Close)
	s.health.AddReady("identity", health.Ping("identity", pool))

	store, err := identity.NewPostgresLookup(pool, cfg.Identity.Table)
	if err != nil {
		return nil, err
	}

	breaker := identity.NewBreakerLookup(store, identity.BreakerOptions{
		ConsecutiveFailures: cfg.Identity.BreakerFailures,
		OpenTimeout:         cfg.Identity.BreakerOpenFor.Std(),
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.metrics.SetBreakerState(name, int(to))
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	s.health.AddReady("identity_breaker", health.Breaker(breaker.State))

	return identity.NewCachedLookup(breaker, cfg.Identity.CacheSize, cfg.Identity.CacheTTL.Std()), nil
}

func (s *server) routes(p *pipeline.Pipeline) error {
	app := s.app
	app.GET("/healthz", serve(s.health.Handler()))
	app.GET("/readyz", serve(s.health.ReadyHandler()))
	app.GET("/metrics", serve(metrics.Handler(s.metrics)))

	routes := []struct {
		method   string
		path     string
		handler  bulwark.Handler
		security pipeline.RouteSecurity
		extra    []bulwark.Middleware
	}{
		{http.MethodGet, "/csrf-token", middleware.CSRFTokenHandler(p.Sessions()), pipeline.Public, []bulwark.Middleware{middleware.Session(p.Sessions())}},
		{http.MethodGet, "/api/me", me, pipeline.RouteSecurity{Authenticate: true}, nil},
		{http.MethodGet, "/api/admin", admin, pipeline.RouteSecurity{Roles: []string{"admin"}}, nil},
		{http.MethodPost, "/api/notes", createNote, pipeline.RouteSecurity{Authenticate: true, CSRF: true}, nil},
	}
	for _, route := range routes {
		if err := p.Route(app, route.method, route.path, route.handler, route.security, route.extra...); err != nil {
			return err
		}
	}
	return nil
}

// sweepInterval caps how long expired in-memory windows linger.
const sweepInterval = time.Minute

// sweep prunes the in-memory rate limit counter until Close. Redis windows
// expire on their own.
func (s *server) sweep(limiter *ratelimit.Limiter, logger *slog.Logger) {
	counter, ok := limiter.Counter.(*ratelimit.MemoryCounter)
	if !ok {
		return
	}
	s.counter = counter
	window := limiter.EffectiveWindow()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		counter.Sweep(ctx, min(window, sweepInterval), window, func(removed int) {
			if removed > 0 {
				logger.Debug("rate limit windows pruned",
					slog.Int("removed", removed),
					slog.Int("tracked", counter.Len()),
				)
			}
		})
	}()
	s.closers = append(s.closers, func() {
		cancel()
		<-done
	})
}

// Close stops the counter sweep and releases the Redis client and the
// identity pool.
func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func usesRedis(cfg config.Config) bool {
	return strings.EqualFold(cfg.RateLimit.Backend, config.BackendRedis) ||
		strings.EqualFold(cfg.Session.Backend, config.BackendRedis)
}

func serve(handler http.Handler) bulwark.Handler {
	return func(ctx *bulwark.Context) error {
		handler.ServeHTTP(ctx.ResponseWriter, ctx.Request)
		return nil
	}
}

func me(ctx *bulwark.Context) error {
	principal, _ := bulwark.PrincipalFromContext(ctx)
	return ctx.JSON(http.StatusOK, map[string]string{"id": principal.ID, "role": principal.Role})
}

func admin(ctx *bulwark.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func createNote(ctx *bulwark.Context) error {
	principal, _ := bulwark.PrincipalFromContext(ctx)
	return ctx.JSON(http.StatusCreated, map[string]string{"status": "created", "owner": principal.ID})
}
