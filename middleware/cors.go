package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devmarvs/bulwark"
)

// DefaultCORSMaxAge is the preflight cache lifetime.
const DefaultCORSMaxAge = 86400 * time.Second

// CORSOptions configures CORS behavior.
type CORSOptions struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
	Recorder       DecisionRecorder
}

// CORS applies the allow-list to every response, whatever later stages
// decide, and answers every OPTIONS request with 204 without calling next.
func CORS(options CORSOptions) bulwark.Middleware {
	opts := normalizeCORS(options)
	methods := strings.Join(opts.AllowedMethods, ", ")
	headers := strings.Join(opts.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(int(opts.MaxAge.Seconds()))

	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			header := ctx.ResponseWriter.Header()
			if allowedOrigin, ok := matchOrigin(opts.AllowedOrigins, ctx.Request.Header.Get("Origin")); ok {
				header.Set("Access-Control-Allow-Origin", allowedOrigin)
				if allowedOrigin != "*" {
					header.Add("Vary", "Origin")
				}
			}
			header.Set("Access-Control-Allow-Methods", methods)
			header.Set("Access-Control-Allow-Headers", headers)
			header.Set("Access-Control-Max-Age", maxAge)

			if ctx.Request.Method == http.MethodOptions {
				record(opts.Recorder, StageCORS, OutcomePreflight)
				return ctx.NoContent(http.StatusNoContent)
			}
			return next(ctx)
		}
	}
}

func normalizeCORS(options CORSOptions) CORSOptions {
	if len(options.AllowedOrigins) == 0 {
		options.AllowedOrigins = []string{"*"}
	}
	if len(options.AllowedMethods) == 0 {
		options.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(options.AllowedHeaders) == 0 {
		options.AllowedHeaders = []string{"Content-Type", "Authorization", CSRFHeader}
	}
	if options.MaxAge <= 0 {
		options.MaxAge = DefaultCORSMaxAge
	}
	return options
}

// matchOrigin returns the Allow-Origin value: "*" when wildcarded, the
// request origin when listed, nothing otherwise.
func matchOrigin(allowed []string, origin string) (string, bool) {
	for _, entry := range allowed {
		if entry == "*" {
			return "*", true
		}
	}
	if origin == "" {
		return "", false
	}
	for _, entry := range allowed {
		if strings.EqualFold(entry, origin) {
			return origin, true
		}
	}
	return "", false
}
