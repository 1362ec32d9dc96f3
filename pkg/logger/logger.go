package logger

import (
	"log/slog"
	"strings"
)

// New builds a logger from a textual level and a handler constructor, e.g.
// logger.New(cfg.LogLevel, logger.NewCloudRunHandler).
func New(level string, handler func(level slog.Level) slog.Handler) *slog.Logger {
	return slog.New(handler(getSlogLevel(level)))
}

// ---- Helpers ----
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
