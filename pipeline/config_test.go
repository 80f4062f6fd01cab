package pipeline

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/config"
	"github.com/devmarvs/bulwark/identity"
	"github.com/devmarvs/bulwark/internal/redistest"
	"github.com/devmarvs/bulwark/session"
	"github.com/devmarvs/bulwark/testutil"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.JWT.Secret = string(testKey.Secret)
	cfg.RateLimit.Limit = 2
	return cfg
}

func lookup() identity.Lookup {
	return identity.NewMemoryLookup(identity.Record{ID: "user-1", Role: "user", Status: bulwark.StatusActive})
}

func TestFromConfigMemoryBackends(t *testing.T) {
	p, err := FromConfig(testConfig(), Dependencies{Identities: lookup()})
	require.NoError(t, err)

	_, ok := p.Sessions().(*session.MemoryStore)
	assert.True(t, ok)

	app := testutil.NewApp()
	p.Install(app)
	p.MustRoute(app, http.MethodGet, "/api/me", func(ctx *bulwark.Context) error {
		return ctx.NoContent(http.StatusNoContent)
	}, RouteSecurity{Authenticate: true})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	assert.Equal(t, http.StatusNoContent, testutil.Do(t, app, req).Code)
	assert.Equal(t, http.StatusUnauthorized, testutil.Do(t, app, httptest.NewRequest(http.MethodGet, "/api/me", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, testutil.Do(t, app, httptest.NewRequest(http.MethodGet, "/api/me", nil)).Code)
}

func TestFromConfigRedisBackends(t *testing.T) {
	server, client := redistest.Start(t)
	cfg := testConfig()
	cfg.RateLimit.Backend = config.BackendRedis
	cfg.Session.Backend = config.BackendRedis

	p, err := FromConfig(cfg, Dependencies{Redis: client, Identities: lookup()})
	require.NoError(t, err)

	_, ok := p.Sessions().(*session.RedisStore)
	assert.True(t, ok)

	app := testutil.NewApp()
	p.Install(app)
	app.GET("/", func(ctx *bulwark.Context) error { return ctx.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:1000"
	assert.Equal(t, http.StatusNoContent, testutil.Do(t, app, req).Code)
	assert.True(t, server.Exists("bulwark:ratelimit:1.2.3.4"))
}

func TestFromConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		deps   Dependencies
	}{
		{name: "missing secret", mutate: func(c *config.Config) { c.JWT.Secret = "" }, deps: Dependencies{Identities: lookup()}},
		{name: "missing identities", mutate: func(*config.Config) {}},
		{name: "redis counter without client", mutate: func(c *config.Config) { c.RateLimit.Backend = config.BackendRedis }, deps: Dependencies{Identities: lookup()}},
		{name: "redis sessions without client", mutate: func(c *config.Config) { c.Session.Backend = config.BackendRedis }, deps: Dependencies{Identities: lookup()}},
		{name: "unknown backend", mutate: func(c *config.Config) { c.RateLimit.Backend = "memcached" }, deps: Dependencies{Identities: lookup()}},
		{name: "zero limit", mutate: func(c *config.Config) { c.RateLimit.Limit = 0 }, deps: Dependencies{Identities: lookup()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			_, err := FromConfig(cfg, tc.deps)
			assert.Error(t, err)
		})
	}
}
