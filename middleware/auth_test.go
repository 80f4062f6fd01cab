package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/apperr"
	"github.com/devmarvs/bulwark/auth"
	"github.com/devmarvs/bulwark/identity"
	"github.com/devmarvs/bulwark/testutil"
)

type testAuth struct {
	principal *bulwark.Principal
	err       error
}

func (t testAuth) Authenticate(*bulwark.Context) (*bulwark.Principal, error) {
	return t.principal, t.err
}

func newJWTAuthenticator(t *testing.T) (*auth.Authenticator, func(subject, tokenType string) string) {
	t.Helper()
	key := auth.JWTKey{Secret: []byte("secret")}
	lookup := identity.NewMemoryLookup(
		identity.Record{ID: "admin-1", Role: "admin", Status: bulwark.StatusActive},
		identity.Record{ID: "user-1", Role: "user", Status: bulwark.StatusActive},
		identity.Record{ID: "banned-1", Role: "user", Status: "banned"},
	)
	authenticator := auth.NewAuthenticator(auth.NewJWTVerifier(key.Secret), lookup)

	sign := func(subject, tokenType string) string {
		now := time.Now()
		token, err := auth.SignHS256(key, auth.Claims{
			SubjectID: subject,
			TokenType: tokenType,
			IssuedAt:  now.Add(-time.Minute),
			ExpiresAt: now.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	return authenticator, sign
}

func TestRequireAuthAttachesPrincipal(t *testing.T) {
	authenticator, sign := newJWTAuthenticator(t)
	log := &decisionLog{}

	app := testutil.NewApp()
	app.GET("/api/me", func(ctx *bulwark.Context) error {
		principal, ok := bulwark.PrincipalFromContext(ctx)
		if !ok {
			return apperr.Internal("principal missing", nil)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"id": principal.ID, "role": principal.Role})
	}, RequireAuth(authenticator, AuthRecorder(log)))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+sign("user-1", auth.TokenTypeAccess))
	rec := testutil.Do(t, app, req)
	testutil.MustStatus(t, rec, http.StatusOK)

	var payload map[string]string
	testutil.DecodeJSON(t, rec, &payload)
	if payload["id"] != "user-1" || payload["role"] != "user" {
		t.Fatalf("unexpected principal %v", payload)
	}
	if !log.has("authenticate:allow") {
		t.Fatalf("expected allow decision")
	}
}

func TestRequireAuthFailures(t *testing.T) {
	authenticator, sign := newJWTAuthenticator(t)

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "missing or invalid token"},
		{"wrong scheme", "Basic " + sign("user-1", auth.TokenTypeAccess), "missing or invalid token"},
		{"garbage", "Bearer not-a-jwt", "missing or invalid token"},
		{"refresh token", "Bearer " + sign("user-1", auth.TokenTypeRefresh), "wrong token type"},
		{"inactive", "Bearer " + sign("banned-1", auth.TokenTypeAccess), "principal unavailable"},
		{"unknown subject", "Bearer " + sign("ghost", auth.TokenTypeAccess), "principal unavailable"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		called := false
		_, err := testutil.RunMiddleware(t, []bulwark.Middleware{RequireAuth(authenticator)}, func(*bulwark.Context) error {
			called = true
			return nil
		}, req)

		appErr := apperr.As(err)
		if appErr == nil || appErr.Status != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %v", tc.name, err)
		}
		if appErr.Message != tc.message {
			t.Fatalf("%s: expected message %q, got %q", tc.name, tc.message, appErr.Message)
		}
		if called {
			t.Fatalf("%s: expected handler not to run", tc.name)
		}
	}
}

func TestRequireAuthNilPrincipalWithoutError(t *testing.T) {
	_, err := testutil.RunMiddleware(t, []bulwark.Middleware{RequireAuth(testAuth{})}, nil, nil)
	if !errors.Is(err, auth.ErrMissingOrInvalidToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestAuthHooks(t *testing.T) {
	calledBefore := false
	var gotPrincipal *bulwark.Principal
	var gotErr error

	app := testutil.NewApp(bulwark.WithAuthHooks(bulwark.AuthHooks{
		BeforeAuthenticate: func(*bulwark.Context) { calledBefore = true },
		AfterAuthenticate: func(_ *bulwark.Context, principal *bulwark.Principal, err error) {
			gotPrincipal = principal
			gotErr = err
		},
	}))

	app.GET("/private", func(ctx *bulwark.Context) error {
		return ctx.Text(http.StatusOK, "ok")
	}, RequireAuth(testAuth{principal: &bulwark.Principal{ID: "user-1", Status: bulwark.StatusActive}}))

	rec := testutil.Do(t, app, httptest.NewRequest(http.MethodGet, "/private", nil))
	testutil.MustStatus(t, rec, http.StatusOK)
	if !calledBefore {
		t.Fatalf("expected BeforeAuthenticate hook to be called")
	}
	if gotPrincipal == nil || gotPrincipal.ID != "user-1" || gotErr != nil {
		t.Fatalf("expected principal to be passed to hook")
	}
}

func TestRequireRoles(t *testing.T) {
	authenticator, sign := newJWTAuthenticator(t)

	app := testutil.NewApp()
	app.GET("/api/admin", func(ctx *bulwark.Context) error {
		return ctx.Text(http.StatusOK, "admin")
	}, RequireAuth(authenticator), RequireRoles("admin"))
	app.GET("/api/nobody", func(ctx *bulwark.Context) error {
		return ctx.Text(http.StatusOK, "unreachable")
	}, RequireAuth(authenticator), RequireRoles())

	cases := []struct {
		path    string
		subject string
		status  int
	}{
		{"/api/admin", "admin-1", http.StatusOK},
		{"/api/admin", "user-1", http.StatusForbidden},
		{"/api/nobody", "admin-1", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+sign(tc.subject, auth.TokenTypeAccess))
		rec := testutil.Do(t, app, req)
		if rec.Code != tc.status {
			t.Fatalf("%s as %s: expected %d, got %d", tc.path, tc.subject, tc.status, rec.Code)
		}
	}
}

func TestRequireRolesWithoutAuthentication(t *testing.T) {
	log := &decisionLog{}
	_, err := testutil.RunMiddleware(t, []bulwark.Middleware{RequireAuthorization(auth.RequireRoles("admin"), AuthRecorder(log))}, nil, nil)

	if !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if appErr := apperr.As(err); appErr == nil || appErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if !log.has("authorize:error") {
		t.Fatalf("expected ordering error to be recorded")
	}
}

func TestRequireAuthLookupOutage(t *testing.T) {
	key := auth.JWTKey{Secret: []byte("secret")}
	down := identity.LookupFunc(func(context.Context, string) (identity.Record, error) {
		return identity.Record{}, errors.New("connection refused")
	})
	authenticator := auth.NewAuthenticator(auth.NewJWTVerifier(key.Secret), identity.NewBreakerLookup(down, identity.BreakerOptions{ConsecutiveFailures: 1}))

	now := time.Now()
	token, err := auth.SignHS256(key, auth.Claims{SubjectID: "u", TokenType: auth.TokenTypeAccess, IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		_, err := testutil.RunMiddleware(t, []bulwark.Middleware{RequireAuth(authenticator)}, nil, req)
		if !errors.Is(err, auth.ErrPrincipalUnavailable) {
			t.Fatalf("attempt %d: expected principal unavailable, got %v", i, err)
		}
	}
}
