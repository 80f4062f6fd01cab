package middleware

import (
	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/apperr"
	"github.com/devmarvs/bulwark/session"
)

const sessionKey = "bulwark.session"

// Session loads the caller's session and stores it on the context, giving
// downstream stages an explicit session handle.
func Session(store session.Store) bulwark.Middleware {
	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			if store == nil {
				return apperr.Internal("session store not configured", nil)
			}

			sess, err := store.Get(ctx.Request)
			if err != nil {
				return apperr.Unavailable("session unavailable", err)
			}

			ctx.Set(sessionKey, sess)
			return next(ctx)
		}
	}
}

// SessionFromContext returns the loaded session.
func SessionFromContext(ctx *bulwark.Context) (*session.Session, bool) {
	value, ok := ctx.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok && sess != nil
}

// SetSession stores a session in context for downstream handlers.
func SetSession(ctx *bulwark.Context, sess *session.Session) {
	ctx.Set(sessionKey, sess)
}
