// Package tracing adapts OpenTelemetry to middleware.Trace.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devmarvs/bulwark"
)

// DefaultName is the instrumentation scope name.
const DefaultName = "github.com/devmarvs/bulwark"

// Tracer starts one server span per request.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from provider; a nil provider uses the global one.
func NewTracer(provider trace.TracerProvider, name string) *Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	if name == "" {
		name = DefaultName
	}
	return &Tracer{tracer: provider.Tracer(name)}
}

// Start starts a span for the request and returns its finisher.
func (t *Tracer) Start(ctx *bulwark.Context) (context.Context, func(status int, err error)) {
	if t == nil || ctx == nil || ctx.Request == nil {
		return context.Background(), nil
	}

	req := ctx.Request
	spanCtx, span := t.tracer.Start(req.Context(), req.Method+" "+req.URL.Path, trace.WithSpanKind(trace.SpanKindServer))

	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
	}
	if req.Host != "" {
		attrs = append(attrs, attribute.String("server.address", req.Host))
	}
	if requestID := ctx.RequestID(); requestID != "" {
		attrs = append(attrs, attribute.String("bulwark.request_id", requestID))
	}
	span.SetAttributes(attrs...)

	return spanCtx, func(status int, err error) {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		switch {
		case status >= 500:
			if err != nil {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, "server error")
		case err != nil:
			span.SetAttributes(attribute.String("bulwark.rejection", err.Error()))
		}
		span.End()
	}
}
