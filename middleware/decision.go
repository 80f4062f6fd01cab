package middleware

import (
	"log/slog"

	"github.com/devmarvs/bulwark"
)

// Security stage names used in logs and metrics.
const (
	StageCORS         = "cors"
	StageRateLimit    = "rate_limit"
	StageCSRF         = "csrf"
	StageAuthenticate = "authenticate"
	StageAuthorize    = "authorize"
)

// Decision outcomes.
const (
	OutcomeAllow     = "allow"
	OutcomeDeny      = "deny"
	OutcomeError     = "error"
	OutcomePreflight = "preflight"
	OutcomeSkip      = "skip"
)

// DecisionRecorder receives one outcome per security stage evaluation.
type DecisionRecorder interface {
	RecordDecision(stage, outcome string)
}

func record(recorder DecisionRecorder, stage, outcome string) {
	if recorder != nil {
		recorder.RecordDecision(stage, outcome)
	}
}

// deny logs a rejected request at warn level and records it.
func deny(ctx *bulwark.Context, recorder DecisionRecorder, stage, reason string, attrs ...slog.Attr) {
	record(recorder, stage, OutcomeDeny)
	attrs = append([]slog.Attr{
		slog.String("stage", stage),
		slog.String("reason", reason),
		slog.String("path", ctx.Request.URL.Path),
	}, withClient(ctx, attrs)...)
	ctx.Logger().Warn("request denied", attrs...)
}

// fail logs a collaborator failure at error level and records it.
func fail(ctx *bulwark.Context, recorder DecisionRecorder, stage string, err error, attrs ...slog.Attr) {
	record(recorder, stage, OutcomeError)
	attrs = append([]slog.Attr{
		slog.String("stage", stage),
		slog.String("error", err.Error()),
		slog.String("path", ctx.Request.URL.Path),
	}, withClient(ctx, attrs)...)
	ctx.Logger().Error("security stage failed", attrs...)
}

// withClient adds the peer address unless the caller already resolved one.
func withClient(ctx *bulwark.Context, attrs []slog.Attr) []slog.Attr {
	for _, attr := range attrs {
		if attr.Key == "client" {
			return attrs
		}
	}
	return append([]slog.Attr{slog.String("client", clientIP(ctx.Request, false))}, attrs...)
}
