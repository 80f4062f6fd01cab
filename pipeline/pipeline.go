// Package pipeline assembles the security stages in their fixed order.
//
// Global stages run for every request, matched or not:
//
//	CORS -> RateLimit
//
// Route stages run only on the routes that ask for them:
//
//	Session -> CSRF -> Authenticate -> Authorize -> handler
//
// A stage that rejects a request stops the chain; later stages never run.
package pipeline

import (
	"errors"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/auth"
	"github.com/devmarvs/bulwark/middleware"
	"github.com/devmarvs/bulwark/ratelimit"
	"github.com/devmarvs/bulwark/session"
)

var (
	// ErrLimiterRequired is returned by New without a rate limiter.
	ErrLimiterRequired = errors.New("pipeline: rate limiter is required")
	// ErrInvalidLimit is returned by New for a non-positive limit.
	ErrInvalidLimit = errors.New("pipeline: rate limit must be > 0")
	// ErrSessionsRequired is returned when a route asks for CSRF without a session store.
	ErrSessionsRequired = errors.New("pipeline: session store is required for csrf")
	// ErrAuthenticatorRequired is returned when a route asks for authentication without an authenticator.
	ErrAuthenticatorRequired = errors.New("pipeline: authenticator is required")
)

// Options holds the pipeline collaborators.
type Options struct {
	CORS          middleware.CORSOptions
	Limiter       *ratelimit.Limiter
	Limit         int
	RateLimit     []middleware.RateLimitOption
	Sessions      session.Store
	Authenticator bulwark.Authenticator
	// Recorder receives every stage outcome, e.g. a *metrics.Registry.
	Recorder middleware.DecisionRecorder
}

// RouteSecurity selects the route stages. Roles imply Authenticate; an
// explicitly empty role list is not the same as nil and denies everyone.
type RouteSecurity struct {
	Authenticate bool
	Roles        []string
	CSRF         bool
}

// Public is the zero RouteSecurity: global stages only.
var Public = RouteSecurity{}

// Pipeline builds middleware for an App.
type Pipeline struct {
	options Options
}

// New validates options and creates a Pipeline.
func New(options Options) (*Pipeline, error) {
	if options.Limiter == nil {
		return nil, ErrLimiterRequired
	}
	if options.Limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if options.CORS.Recorder == nil {
		options.CORS.Recorder = options.Recorder
	}
	return &Pipeline{options: options}, nil
}

// Limiter returns the rate limiter shared by every request.
func (p *Pipeline) Limiter() *ratelimit.Limiter {
	return p.options.Limiter
}

// Sessions returns the configured session store.
func (p *Pipeline) Sessions() session.Store {
	return p.options.Sessions
}

// Global returns the stages that run for every request.
func (p *Pipeline) Global() []bulwark.Middleware {
	rateLimit := append([]middleware.RateLimitOption{}, p.options.RateLimit...)
	if p.options.Recorder != nil {
		rateLimit = append(rateLimit, middleware.RateLimitRecorder(p.options.Recorder))
	}
	return []bulwark.Middleware{
		middleware.CORS(p.options.CORS),
		middleware.RateLimit(p.options.Limiter, p.options.Limit, rateLimit...),
	}
}

// Protect returns the route stages selected by security, in order.
func (p *Pipeline) Protect(security RouteSecurity) ([]bulwark.Middleware, error) {
	var stack []bulwark.Middleware

	if security.CSRF {
		if p.options.Sessions == nil {
			return nil, ErrSessionsRequired
		}
		stack = append(stack,
			middleware.Session(p.options.Sessions),
			middleware.CSRF(middleware.CSRFOptions{Recorder: p.options.Recorder}),
		)
	}

	authorize := security.Roles != nil
	if security.Authenticate || authorize {
		if p.options.Authenticator == nil {
			return nil, ErrAuthenticatorRequired
		}
		stack = append(stack, middleware.RequireAuth(p.options.Authenticator, middleware.AuthRecorder(p.options.Recorder)))
	}
	if authorize {
		stack = append(stack, middleware.RequireAuthorization(auth.RequireRoles(security.Roles...), middleware.AuthRecorder(p.options.Recorder)))
	}
	return stack, nil
}

// Install attaches the global stages. Call it before registering other
// global middleware that should run inside them.
func (p *Pipeline) Install(app *bulwark.App) {
	app.Use(p.Global()...)
}

// Route registers a handler behind the route stages selected by security.
// Extra middleware runs after the security stages.
func (p *Pipeline) Route(app *bulwark.App, method, path string, handler bulwark.Handler, security RouteSecurity, extra ...bulwark.Middleware) error {
	stack, err := p.Protect(security)
	if err != nil {
		return err
	}
	app.Handle(method, path, handler, append(stack, extra...)...)
	return nil
}

// MustRoute is Route that panics on a configuration error.
func (p *Pipeline) MustRoute(app *bulwark.App, method, path string, handler bulwark.Handler, security RouteSecurity, extra ...bulwark.Middleware) {
	if err := p.Route(app, method, path, handler, security, extra...); err != nil {
		panic(err)
	}
}
