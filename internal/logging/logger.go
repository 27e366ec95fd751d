// Package logging configures structured logging with log/slog.
//
// Diagnostics go to stderr so that stdout stays free for prompts and for
// the JSON result document of batch runs.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default slog logger.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRun returns the default logger tagged with a merge run id, so every
// entry of one run can be correlated.
//
//	logger := logging.WithRun(runID)
//	logger.Info("sources loaded", "count", len(sources))
func WithRun(runID string, args ...any) *slog.Logger {
	return slog.Default().With(append([]any{"run_id", runID}, args...)...)
}
