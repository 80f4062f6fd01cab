package bulwark

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devmarvs/bulwark/apperr"
	"github.com/devmarvs/bulwark/internal/principalctx"
	"github.com/devmarvs/bulwark/logging"
)

func newTestApp() *App {
	return New(WithLogger(logging.Discard()))
}

func TestRouteParams(t *testing.T) {
	app := newTestApp()
	app.GET("/users/{id}", func(ctx *Context) error {
		return ctx.Text(http.StatusOK, ctx.Param("id"))
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "42" {
		t.Fatalf("expected 200 42, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestUnmatchedRequestsRunGlobalMiddleware(t *testing.T) {
	app := newTestApp()
	app.Use(func(next Handler) Handler {
		return func(ctx *Context) error {
			ctx.ResponseWriter.Header().Set("X-Global", "1")
			return next(ctx)
		}
	})
	app.GET("/users/{id}", func(ctx *Context) error {
		return ctx.Text(http.StatusOK, "ok")
	})

	cases := []struct {
		method string
		path   string
		status int
		code   string
	}{
		{http.MethodGet, "/missing", http.StatusNotFound, apperr.CodeNotFound},
		{http.MethodPost, "/users/1", http.StatusMethodNotAllowed, apperr.CodeMethodNotAllowed},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

		if rec.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, rec.Code)
		}
		if rec.Header().Get("X-Global") != "1" {
			t.Fatalf("%s %s: expected global middleware to run", tc.method, tc.path)
		}
		if !strings.Contains(rec.Body.String(), `"code":"`+tc.code+`"`) {
			t.Fatalf("expected error code %s, got %s", tc.code, rec.Body.String())
		}
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx *Context) error {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	app := newTestApp()
	app.Use(mark("global-1"), mark("global-2"))
	api := app.Group("/api", mark("group"))
	api.GET("/items", func(ctx *Context) error {
		order = append(order, "handler")
		return nil
	}, mark("route"))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	want := "global-1,global-2,group,route,handler"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestShortCircuitStopsChain(t *testing.T) {
	called := false
	app := newTestApp()
	app.Use(func(next Handler) Handler {
		return func(*Context) error {
			return apperr.Forbidden("forbidden", nil)
		}
	})
	app.GET("/", func(*Context) error {
		called = true
		return nil
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusForbidden || called {
		t.Fatalf("expected 403 without handler call, got %d called=%v", rec.Code, called)
	}
}

func TestDefaultErrorHandlerHidesCause(t *testing.T) {
	app := newTestApp()
	app.GET("/plain", func(*Context) error { return errors.New("db password leaked") })
	app.GET("/text", func(*Context) error { return apperr.Unauthorized("missing or invalid token", nil) })

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("expected opaque 500, got %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/text", nil)
	req.Header.Set("Accept", "text/plain")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || rec.Body.String() != "missing or invalid token" {
		t.Fatalf("expected plain text 401, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCustomErrorHandler(t *testing.T) {
	var seen error
	app := New(WithLogger(logging.Discard()), WithErrorHandler(func(ctx *Context, err error) {
		seen = err
		_ = ctx.NoContent(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if rec.Code != http.StatusTeapot || apperr.As(seen) == nil {
		t.Fatalf("expected custom handler to receive app error, got %d %v", rec.Code, seen)
	}
}

func TestPrincipalFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := NewContext(httptest.NewRecorder(), req, nil, nil)
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatalf("expected no principal")
	}

	principal := &Principal{ID: "u1", Role: "admin", Status: StatusActive}
	ctx.Request = req.WithContext(principalctx.With(context.Background(), principal))
	got, ok := PrincipalFromContext(ctx)
	if !ok || got != principal {
		t.Fatalf("expected attached principal")
	}
	if !got.Active() || (&Principal{Status: "banned"}).Active() || (*Principal)(nil).Active() {
		t.Fatalf("unexpected Active results")
	}
	if _, ok := PrincipalFromContext(nil); ok {
		t.Fatalf("expected nil context to have no principal")
	}
}

func TestInvalidRouteIgnored(t *testing.T) {
	app := newTestApp()
	app.GET("no-slash", func(*Context) error { return nil })
	app.GET("/nil", nil)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nil", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for rejected registration, got %d", rec.Code)
	}
}
