// Package principalctx owns the request-context slot that carries the
// authenticated principal. Being internal, only packages of this module can
// populate it; applications can only read it through bulwark.PrincipalFromContext.
package principalctx

import "context"

type key struct{}

// With returns a context carrying the principal.
func With(ctx context.Context, principal any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key{}, principal)
}

// From returns the stored principal or nil.
func From(ctx context.Context) any {
	if ctx == nil {
		return nil
	}
	return ctx.Value(key{})
}
