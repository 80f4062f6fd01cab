package bulwark

import "github.com/devmarvs/bulwark/internal/principalctx"

// StatusActive is the only principal status accepted by authentication.
const StatusActive = "active"

// Principal represents an authenticated actor. It is immutable for the
// lifetime of a request.
type Principal struct {
	ID     string
	Role   string
	Status string
}

// Active reports whether the principal may authenticate.
func (p *Principal) Active() bool {
	return p != nil && p.Status == StatusActive
}

// Authenticator validates a request and returns a principal.
type Authenticator interface {
	Authenticate(*Context) (*Principal, error)
}

// Authorizer checks if a principal can access a resource.
type Authorizer interface {
	Authorize(*Context, *Principal) error
}

// PrincipalFromContext extracts the principal attached by the authentication
// stage.
func PrincipalFromContext(ctx *Context) (*Principal, bool) {
	if ctx == nil || ctx.Request == nil {
		return nil, false
	}
	principal, ok := principalctx.From(ctx.Request.Context()).(*Principal)
	if !ok || principal == nil {
		return nil, false
	}
	return principal, true
}

// AuthHooks observes the authentication stage. Hooks must not mutate the
// request; they exist for audit logging and metrics.
type AuthHooks struct {
	BeforeAuthenticate func(ctx *Context)
	AfterAuthenticate  func(ctx *Context, principal *Principal, err error)
}
