package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. Text output keeps local runs readable;
// JSON suits anything that ships logs off the box.
func New(level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}

// ParseLevel maps a config value onto a slog level. Unknown values fall back
// to info rather than failing startup over a typo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
