package logger

import (
	"io"
	"log/slog"
)

// NewTestHandler discards everything but still honours the level, so
// IsDebugEnabled behaves the same in tests as in production.
func NewTestHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})
}
