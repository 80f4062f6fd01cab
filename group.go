package bulwark

import (
	"net/http"
	"strings"
)

// Group defines a route group with a common prefix and middleware. Group
// middleware runs after global middleware and before route middleware.
type Group struct {
	app        *App
	prefix     string
	middleware []Middleware
}

// Group creates a new route group.
func (a *App) Group(prefix string, middleware ...Middleware) *Group {
	return &Group{app: a, prefix: cleanPrefix(prefix), middleware: middleware}
}

// Group creates a nested group.
func (g *Group) Group(prefix string, middleware ...Middleware) *Group {
	return &Group{app: g.app, prefix: joinPaths(g.prefix, prefix), middleware: g.chain(middleware)}
}

// Use appends middleware to the group for routes registered afterwards.
func (g *Group) Use(middleware ...Middleware) {
	g.middleware = append(g.middleware, middleware...)
}

// GET registers a GET route in the group.
func (g *Group) GET(path string, handler Handler, middleware ...Middleware) {
	g.Handle(http.MethodGet, path, handler, middleware...)
}

// POST registers a POST route in the group.
func (g *Group) POST(path string, handler Handler, middleware ...Middleware) {
	g.Handle(http.MethodPost, path, handler, middleware...)
}

// PUT registers a PUT route in the group.
func (g *Group) PUT(path string, handler Handler, middleware ...Middleware) {
	g.Handle(http.MethodPut, path, handler, middleware...)
}

// PATCH registers a PATCH route in the group.
func (g *Group) PATCH(path string, handler Handler, middleware ...Middleware) {
	g.Handle(http.MethodPatch, path, handler, middleware...)
}

// DELETE registers a DELETE route in the group.
func (g *Group) DELETE(path string, handler Handler, middleware ...Middleware) {
	g.Handle(http.MethodDelete, path, handler, middleware...)
}

// Handle registers a route in the group for an arbitrary method.
func (g *Group) Handle(method, path string, handler Handler, middleware ...Middleware) {
	g.app.handle(method, joinPaths(g.prefix, path), handler, g.chain(middleware)...)
}

func (g *Group) chain(middleware []Middleware) []Middleware {
	combined := make([]Middleware, 0, len(g.middleware)+len(middleware))
	combined = append(combined, g.middleware...)
	return append(combined, middleware...)
}

func joinPaths(base, path string) string {
	if base == "" {
		return cleanPrefix(path)
	}
	if path == "" || path == "/" {
		return cleanPrefix(base)
	}

	base = cleanPrefix(base)
	path = cleanPrefix(path)

	if base == "/" {
		return path
	}
	return strings.TrimRight(base, "/") + path
}

func cleanPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if len(prefix) > 1 {
		prefix = strings.TrimRight(prefix, "/")
	}
	return prefix
}
