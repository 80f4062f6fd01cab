package middleware

import (
	"errors"
	"log/slog"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/apperr"
	"github.com/devmarvs/bulwark/auth"
	"github.com/devmarvs/bulwark/internal/principalctx"
)

type authConfig struct {
	recorder DecisionRecorder
}

// AuthOption customizes auth middleware behavior.
type AuthOption func(*authConfig)

// AuthRecorder reports authentication and authorization outcomes.
func AuthRecorder(recorder DecisionRecorder) AuthOption {
	return func(cfg *authConfig) {
		cfg.recorder = recorder
	}
}

// RequireAuth authenticates the request and attaches the principal for
// downstream stages. It is the only stage that populates the principal.
func RequireAuth(authenticator bulwark.Authenticator, options ...AuthOption) bulwark.Middleware {
	cfg := newAuthConfig(options)

	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			if authenticator == nil {
				return apperr.Internal("authenticator not configured", nil)
			}

			hooks := ctx.AuthHooks()
			if hooks.BeforeAuthenticate != nil {
				hooks.BeforeAuthenticate(ctx)
			}
			principal, err := authenticator.Authenticate(ctx)
			if err == nil && principal == nil {
				err = auth.ErrMissingOrInvalidToken
			}
			if hooks.AfterAuthenticate != nil {
				hooks.AfterAuthenticate(ctx, principal, err)
			}

			if err != nil {
				return authenticationError(ctx, cfg.recorder, err)
			}

			record(cfg.recorder, StageAuthenticate, OutcomeAllow)
			ctx.Request = ctx.Request.WithContext(principalctx.With(ctx.Request.Context(), principal))
			return next(ctx)
		}
	}
}

// RequireRoles permits only principals whose role is one of roles.
// RequireAuth must run first on the same route.
func RequireRoles(roles ...string) bulwark.Middleware {
	return RequireAuthorization(auth.RequireRoles(roles...))
}

// RequireAuthorization applies an authorizer to the attached principal.
func RequireAuthorization(authorizer bulwark.Authorizer, options ...AuthOption) bulwark.Middleware {
	cfg := newAuthConfig(options)

	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			if authorizer == nil {
				return apperr.Internal("authorizer not configured", nil)
			}

			principal, _ := bulwark.PrincipalFromContext(ctx)
			err := authorizer.Authorize(ctx, principal)
			switch {
			case err == nil:
				record(cfg.recorder, StageAuthorize, OutcomeAllow)
				return next(ctx)
			case errors.Is(err, auth.ErrNotAuthenticated):
				fail(ctx, cfg.recorder, StageAuthorize, errors.New("authorization ran before authentication"))
				return apperr.Unauthorized("not authenticated", err)
			default:
				deny(ctx, cfg.recorder, StageAuthorize, "forbidden", slog.String("principal", principalID(principal)))
				return apperr.Forbidden("forbidden", err)
			}
		}
	}
}

func newAuthConfig(options []AuthOption) authConfig {
	var cfg authConfig
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}

func authenticationError(ctx *bulwark.Context, recorder DecisionRecorder, err error) error {
	switch {
	case errors.Is(err, auth.ErrWrongTokenType):
		deny(ctx, recorder, StageAuthenticate, "wrong token type")
		return apperr.Unauthorized("wrong token type", err)
	case errors.Is(err, auth.ErrPrincipalUnavailable):
		deny(ctx, recorder, StageAuthenticate, "principal unavailable", slog.String("cause", err.Error()))
		return apperr.Unauthorized("principal unavailable", err)
	default:
		deny(ctx, recorder, StageAuthenticate, "missing or invalid token")
		return apperr.Unauthorized("missing or invalid token", err)
	}
}

func principalID(principal *bulwark.Principal) string {
	if principal == nil {
		return ""
	}
	return principal.ID
}
