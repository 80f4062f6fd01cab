package bulwark

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/devmarvs/bulwark/apperr"
	"github.com/devmarvs/bulwark/config"
	"github.com/devmarvs/bulwark/logging"
)

// Handler handles a request and returns an error for centralized handling.
type Handler func(*Context) error

// Middleware wraps a handler with additional behavior.
type Middleware func(Handler) Handler

// ErrorHandler processes errors returned by handlers.
type ErrorHandler func(*Context, error)

// routeEntry is stored as the mux route handler; dispatch type-asserts it
// back so route middleware runs inside the global chain.
type routeEntry struct {
	method     string
	pattern    string
	handler    Handler
	middleware []Middleware
}

func (e *routeEntry) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
}

// App is the main framework entrypoint.
type App struct {
	router       *mux.Router
	middleware   []Middleware
	logger       *slog.Logger
	config       config.Config
	errorHandler ErrorHandler
	authHooks    AuthHooks
}

// Option customizes the app instance.
type Option func(*App)

// New creates a new App with defaults.
func New(options ...Option) *App {
	app := &App{
		router:       mux.NewRouter(),
		config:       config.Default(),
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range options {
		opt(app)
	}

	if app.logger == nil {
		app.logger = logging.NewLogger(logging.Options{Level: app.config.LogLevel, Format: app.config.LogFormat})
	}

	return app
}

// WithConfig overrides the default config.
func WithConfig(cfg config.Config) Option {
	return func(app *App) {
		app.config = cfg
	}
}

// WithLogger uses a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(app *App) {
		app.logger = logger
	}
}

// WithErrorHandler overrides the default error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(app *App) {
		app.errorHandler = handler
	}
}

// WithAuthHooks registers hooks around the authentication stage.
func WithAuthHooks(hooks AuthHooks) Option {
	return func(app *App) {
		app.authHooks = hooks
	}
}

// Use registers global middleware. Global middleware runs for every request,
// including requests that match no route.
func (a *App) Use(middleware ...Middleware) {
	a.middleware = append(a.middleware, middleware...)
}

// GET registers a GET route.
func (a *App) GET(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodGet, path, handler, middleware...)
}

// POST registers a POST route.
func (a *App) POST(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodPost, path, handler, middleware...)
}

// PUT registers a PUT route.
func (a *App) PUT(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodPut, path, handler, middleware...)
}

// PATCH registers a PATCH route.
func (a *App) PATCH(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodPatch, path, handler, middleware...)
}

// DELETE registers a DELETE route.
func (a *App) DELETE(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodDelete, path, handler, middleware...)
}

// OPTIONS registers an OPTIONS route. Global middleware such as CORS still
// runs first and may answer the request itself.
func (a *App) OPTIONS(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodOptions, path, handler, middleware...)
}

// Handle registers a route for an arbitrary method.
func (a *App) Handle(method, path string, handler Handler, middleware ...Middleware) {
	a.handle(method, path, handler, middleware...)
}

func (a *App) handle(method, path string, handler Handler, middleware ...Middleware) {
	if method == "" || path == "" || path[0] != '/' || handler == nil {
		a.logger.Error("route registration failed", slog.String("method", method), slog.String("path", path))
		return
	}

	entry := &routeEntry{
		method:     method,
		pattern:    path,
		handler:    handler,
		middleware: append([]Middleware{}, middleware...),
	}
	a.router.Handle(path, entry).Methods(method)
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := NewContext(w, r, nil, a)

	h := a.dispatch
	for i := len(a.middleware) - 1; i >= 0; i-- {
		h = a.middleware[i](h)
	}

	if err := h(ctx); err != nil {
		a.errorHandler(ctx, err)
	}
}

func (a *App) dispatch(ctx *Context) error {
	var match mux.RouteMatch
	if !a.router.Match(ctx.Request, &match) {
		if errors.Is(match.MatchErr, mux.ErrMethodMismatch) {
			return apperr.MethodNotAllowed("method not allowed", nil)
		}
		return apperr.NotFound("not found", nil)
	}

	entry, ok := match.Handler.(*routeEntry)
	if !ok {
		return apperr.NotFound("not found", nil)
	}
	ctx.Params = match.Vars

	h := entry.handler
	for i := len(entry.middleware) - 1; i >= 0; i-- {
		h = entry.middleware[i](h)
	}
	return h(ctx)
}

// ListenAndServe starts the HTTP server using config values.
func (a *App) ListenAndServe() error {
	server := a.newServer()
	a.logger.Info("server starting", slog.String("address", a.config.Address))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run starts the server and shuts down when the context is canceled.
func (a *App) Run(ctx context.Context) error {
	server := a.newServer()
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("server starting", slog.String("address", a.config.Address))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout.Std())
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// RunWithSignals starts the server and handles SIGINT/SIGTERM for shutdown.
func (a *App) RunWithSignals() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

func defaultErrorHandler(ctx *Context, err error) {
	appErr := apperr.As(err)
	status := http.StatusInternalServerError
	code := apperr.CodeInternal
	message := "internal server error"

	if appErr != nil {
		status = appErr.Status
		code = appErr.Code
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		ctx.Logger().Error("request failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	} else {
		ctx.Logger().Debug("request rejected",
			slog.String("code", code),
			slog.Int("status", status),
		)
	}

	if wantsJSON(ctx.Request) {
		_ = ctx.JSON(status, map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		})
		return
	}

	_ = ctx.Text(status, message)
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(strings.ToLower(accept), "application/json")
}

// ShutdownTimeout returns the configured graceful shutdown timeout.
func (a *App) ShutdownTimeout() time.Duration {
	return a.config.ShutdownTimeout.Std()
}

func (a *App) newServer() *http.Server {
	return &http.Server{
		Addr:              a.config.Address,
		Handler:           a,
		ReadTimeout:       a.config.ReadTimeout.Std(),
		WriteTimeout:      a.config.WriteTimeout.Std(),
		IdleTimeout:       a.config.IdleTimeout.Std(),
		ReadHeaderTimeout: a.config.ReadHeaderTimeout.Std(),
		MaxHeaderBytes:    a.config.MaxHeaderBytes,
	}
}
