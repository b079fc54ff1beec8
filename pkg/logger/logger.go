package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Kiosks and panels talk to
// one backend, so every line is JSON with the request attributes attached by
// the middleware; local and dev environments log at debug.
func New(appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
