// Package logger configures the process-wide slog default.
package logger

import (
	"log/slog"
	"os"
)

// Setup installs the default logger for the given run mode: human-readable
// text with debug level in dev/demo, JSON at info level in prod.
func Setup(mode string) {
	var handler slog.Handler
	if mode == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
