package bulwark

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Params holds path parameters captured by the router.
type Params map[string]string

// Context holds request-specific data.
type Context struct {
	ResponseWriter http.ResponseWriter
	Request        *http.Request
	Params         Params

	app    *App
	values map[string]any
}

// NewContext constructs a Context. A nil app is allowed in tests; the
// default slog logger is used then.
func NewContext(w http.ResponseWriter, r *http.Request, params Params, app *App) *Context {
	return &Context{
		ResponseWriter: w,
		Request:        r,
		Params:         params,
		app:            app,
		values:         make(map[string]any),
	}
}

// Param returns a route param.
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// Query returns a query param.
func (c *Context) Query(name string) string {
	return c.Request.URL.Query().Get(name)
}

// Set stores a value in the context.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Get retrieves a stored value.
func (c *Context) Get(key string) (any, bool) {
	value, ok := c.values[key]
	return value, ok
}

// Logger returns the app logger.
func (c *Context) Logger() Logger {
	base := slog.Default()
	if c.app != nil && c.app.logger != nil {
		base = c.app.logger
	}
	return Logger{logger: base, requestID: RequestIDFromHeader(c.Request)}
}

// JSON responds with JSON.
func (c *Context) JSON(status int, payload any) error {
	c.ResponseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.ResponseWriter.WriteHeader(status)
	return json.NewEncoder(c.ResponseWriter).Encode(payload)
}

// Text responds with plain text.
func (c *Context) Text(status int, message string) error {
	c.ResponseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.ResponseWriter.WriteHeader(status)
	_, err := c.ResponseWriter.Write([]byte(message))
	return err
}

// NoContent writes a status without a body.
func (c *Context) NoContent(status int) error {
	c.ResponseWriter.WriteHeader(status)
	return nil
}

// AuthHooks returns the hooks registered with WithAuthHooks.
func (c *Context) AuthHooks() AuthHooks {
	if c.app == nil {
		return AuthHooks{}
	}
	return c.app.authHooks
}

// RequestID returns the request id header.
func (c *Context) RequestID() string {
	return RequestIDFromHeader(c.Request)
}
