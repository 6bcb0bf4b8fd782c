package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Setup installs the process-wide slog default logger. level is one of
// "debug", "info", "warn", "error" (default "info"); format is "json" or
// "text" (default "json"). JSON is the production default so log lines
// stay machine-parseable end to end.
func Setup(level, format string) {
	lvl, ok := levels[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}

// Component returns the default logger tagged with the originating
// component, for processes that run several loops side by side.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
