package main

import (
	"log/slog"
	"os"
	"strings"
)

// newLogger builds the process-wide structured logger. Logs are JSON on
// stdout so the collector can index correlation_id and study_instance_uid
// fields the same way it did for the previous middleware.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
