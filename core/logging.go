package core

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger builds a tint-formatted logger for the given level name.
// An empty or unknown level logs warnings only (deprecation notices, ignored
// parameters); "off" discards everything.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "error":
		slogLevel = slog.LevelError
	case "off", "none":
		return slog.New(slog.DiscardHandler)
	default:
		slogLevel = slog.LevelWarn
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	}))
}
