package bulwark

import "log/slog"

// Logger wraps slog.Logger with request context.
type Logger struct {
	logger    *slog.Logger
	requestID string
	attrs     []slog.Attr
}

// With returns a logger that appends attrs to every record.
func (l Logger) With(attrs ...slog.Attr) Logger {
	combined := make([]slog.Attr, 0, len(l.attrs)+len(attrs))
	combined = append(combined, l.attrs...)
	combined = append(combined, attrs...)
	return Logger{logger: l.logger, requestID: l.requestID, attrs: combined}
}

// Info logs an info message.
func (l Logger) Info(msg string, attrs ...slog.Attr) {
	l.logger.Info(msg, l.args(attrs)...)
}

// Warn logs a warning message.
func (l Logger) Warn(msg string, attrs ...slog.Attr) {
	l.logger.Warn(msg, l.args(attrs)...)
}

// Error logs an error message.
func (l Logger) Error(msg string, attrs ...slog.Attr) {
	l.logger.Error(msg, l.args(attrs)...)
}

// Debug logs a debug message.
func (l Logger) Debug(msg string, attrs ...slog.Attr) {
	l.logger.Debug(msg, l.args(attrs)...)
}

func (l Logger) args(attrs []slog.Attr) []any {
	out := make([]any, 0, len(l.attrs)+len(attrs)+1)
	for _, attr := range l.attrs {
		out = append(out, attr)
	}
	for _, attr := range attrs {
		out = append(out, attr)
	}
	if l.requestID != "" {
		out = append(out, slog.String("request_id", l.requestID))
	}
	return out
}
