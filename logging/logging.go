package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures logging behavior.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// NewLogger builds a slog.Logger with sane defaults. Output defaults to stdout.
func NewLogger(options Options) *slog.Logger {
	output := options.Output
	if output == nil {
		output = os.Stdout
	}

	handlerOptions := &slog.HandlerOptions{Level: ParseLevel(options.Level)}
	if strings.EqualFold(options.Format, "json") {
		return slog.New(slog.NewJSONHandler(output, handlerOptions))
	}
	return slog.New(slog.NewTextHandler(output, handlerOptions))
}

// ParseLevel maps a level name to a slog level; unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
