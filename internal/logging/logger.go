// Package logging defines the structured-logging interface shared by the
// notekeeper client, its backends and the terminal front-end. Two adapters are
// provided: one over log/slog and one over zap.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "note downloaded", "note_id", id, "attempt", n)
type Logger interface {
	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a condition that was handled but deserves attention.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs a failure.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// Format names accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatZap  = "zap"
)

// New builds a Logger for the given format writing to w. Unknown formats fall
// back to JSON. The zap format ignores w and writes to stderr.
func New(format string, w io.Writer) (Logger, error) {
	switch strings.ToLower(format) {
	case FormatZap:
		return NewZapLogger("production")
	case FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, nil))), nil
	default:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil))), nil
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
