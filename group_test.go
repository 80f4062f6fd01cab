package bulwark

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJoinPaths(t *testing.T) {
	cases := []struct {
		base string
		path string
		want string
	}{
		{"", "/users", "/users"},
		{"/api", "/v1", "/api/v1"},
		{"/api/", "v1", "/api/v1"},
		{"/", "/health", "/health"},
		{"/api", "/", "/api"},
		{"api", "v1/users", "/api/v1/users"},
	}

	for _, tc := range cases {
		if got := joinPaths(tc.base, tc.path); got != tc.want {
			t.Fatalf("joinPaths(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

func TestNestedGroupMiddleware(t *testing.T) {
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
	api := app.Group("/api", mark("api"))
	admin := api.Group("/admin", mark("admin"))
	admin.Use(mark("late"))
	admin.DELETE("/users/{id}", func(ctx *Context) error {
		order = append(order, "handler:"+ctx.Param("id"))
		return ctx.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/users/7", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	want := []string{"api", "admin", "late", "handler:7"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}
