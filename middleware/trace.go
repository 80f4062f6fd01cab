package middleware

import (
	"context"

	"github.com/devmarvs/bulwark"
)

// Tracer starts spans for incoming requests.
type Tracer interface {
	Start(*bulwark.Context) (context.Context, func(status int, err error))
}

// Trace records request spans using the provided tracer.
func Trace(tracer Tracer) bulwark.Middleware {
	return TraceWithOptions(TraceOptions{Tracer: tracer})
}

// TraceOptions configures tracing middleware.
type TraceOptions struct {
	Tracer    Tracer
	SkipPaths []string
}

// DefaultTraceOptions returns default tracing options.
func DefaultTraceOptions(tracer Tracer) TraceOptions {
	return TraceOptions{
		Tracer:    tracer,
		SkipPaths: []string{"/metrics", "/healthz", "/readyz"},
	}
}

// TraceWithOptions records request spans with options.
func TraceWithOptions(options TraceOptions) bulwark.Middleware {
	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			if options.Tracer == nil || shouldSkipPath(ctx.Request.URL.Path, options.SkipPaths) {
				return next(ctx)
			}

			recorder := newResponseRecorder(ctx.ResponseWriter)
			ctx.ResponseWriter = recorder

			traceCtx, finish := options.Tracer.Start(ctx)
			if traceCtx != nil {
				ctx.Request = ctx.Request.WithContext(traceCtx)
			}

			err := next(ctx)

			if finish != nil {
				finish(statusOf(recorder, err), err)
			}
			return err
		}
	}
}
