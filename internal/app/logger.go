package app

import (
	"io"
	"log/slog"
)

// newLogger builds the logger of one App. The global logger is left alone so
// that several Apps can log to their own writers side by side.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	// Accepts debug, info, warn, error in any case; anything else is info.
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
