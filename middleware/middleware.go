package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/apperr"
)

// RequestID ensures a request id header is present.
func RequestID() bulwark.Middleware {
	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			requestID := ctx.RequestID()
			if requestID == "" {
				requestID = bulwark.NewRequestID()
				ctx.Request.Header.Set(bulwark.RequestIDHeader, requestID)
			}
			ctx.ResponseWriter.Header().Set(bulwark.RequestIDHeader, requestID)
			return next(ctx)
		}
	}
}

// Recover converts panics into internal errors.
func Recover() bulwark.Middleware {
	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = apperr.Internal("internal server error", fmt.Errorf("panic: %v", rec))
				}
			}()
			return next(ctx)
		}
	}
}

// LoggerOptions configures access logging.
type LoggerOptions struct {
	Message   string
	SkipPaths []string
}

// Logger logs request/response details.
func Logger() bulwark.Middleware {
	return LoggerWithOptions(LoggerOptions{})
}

// LoggerWithOptions logs requests using the provided options. Server errors
// are logged at error level.
func LoggerWithOptions(options LoggerOptions) bulwark.Middleware {
	if options.Message == "" {
		options.Message = "request completed"
	}

	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			if shouldSkipPath(ctx.Request.URL.Path, options.SkipPaths) {
				return next(ctx)
			}

			start := time.Now()
			recorder := newResponseRecorder(ctx.ResponseWriter)
			ctx.ResponseWriter = recorder

			err := next(ctx)

			status := statusOf(recorder, err)
			attrs := []slog.Attr{
				slog.String("method", ctx.Request.Method),
				slog.String("path", ctx.Request.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", recorder.Bytes()),
				slog.String("client", clientIP(ctx.Request, false)),
			}
			if status >= http.StatusInternalServerError {
				ctx.Logger().Error(options.Message, attrs...)
			} else {
				ctx.Logger().Info(options.Message, attrs...)
			}
			return err
		}
	}
}
