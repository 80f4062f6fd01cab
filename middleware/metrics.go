package middleware

import (
	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/metrics"
)

// Metrics records request latency and in-flight requests into the registry.
func Metrics(registry *metrics.Registry) bulwark.Middleware {
	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			if registry == nil {
				return next(ctx)
			}

			start := registry.Start()
			recorder := newResponseRecorder(ctx.ResponseWriter)
			ctx.ResponseWriter = recorder

			err := next(ctx)

			registry.End(start, statusOf(recorder, err))
			return err
		}
	}
}
