package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/logging"
)

// Do executes a request against a handler.
func Do(t *testing.T, handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// NewApp builds an app that discards logs.
func NewApp(options ...bulwark.Option) *bulwark.App {
	options = append([]bulwark.Option{bulwark.WithLogger(logging.Discard())}, options...)
	return bulwark.New(options...)
}

// MustStatus asserts the response status code.
func MustStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d (body %q)", status, rec.Code, rec.Body.String())
	}
}

// MustHeader asserts a response header value.
func MustHeader(t *testing.T, rec *httptest.ResponseRecorder, key, value string) {
	t.Helper()
	if got := rec.Header().Get(key); got != value {
		t.Fatalf("expected header %s=%q, got %q", key, value, got)
	}
}

// MustErrorCode asserts the JSON error code written by the default error handler.
func MustErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	if payload.Error.Code != code {
		t.Fatalf("expected error code %q, got %q", code, payload.Error.Code)
	}
}

// DecodeJSON decodes a JSON response into dst.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

// MiddlewareCase describes a middleware test case.
type MiddlewareCase struct {
	Name       string
	Middleware []bulwark.Middleware
	Handler    bulwark.Handler
	Request    *http.Request
	Assert     func(t *testing.T, rec *httptest.ResponseRecorder, err error)
}

// RunMiddleware executes middleware with a handler and request.
func RunMiddleware(t *testing.T, middleware []bulwark.Middleware, handler bulwark.Handler, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	if req == nil {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
	}

	rec := httptest.NewRecorder()
	ctx := bulwark.NewContext(rec, req, bulwark.Params{}, NewApp())

	h := handler
	if h == nil {
		h = func(*bulwark.Context) error { return nil }
	}
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}

	err := h(ctx)
	return rec, err
}

// RunMiddlewareCases executes middleware test cases in a table-driven style.
func RunMiddlewareCases(t *testing.T, cases []MiddlewareCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			rec, err := RunMiddleware(t, tc.Middleware, tc.Handler, tc.Request)
			if tc.Assert != nil {
				tc.Assert(t, rec, err)
			}
		})
	}
}
