// Package logging configures the process-wide slog logger used by
// flowinspectord and its subsystems, and hands out component-scoped
// children of it (admin API, store, clustersync) so every log
// line carries a "component" field without each package repeating it.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jroosing/flowinspect/internal/config"
)

// Configure builds the root logger from a config.LoggingConfig and installs
// it as the slog default. Text output in development, JSON when Structured
// is set (e.g. for log shipping in production deployments).
func Configure(cfg config.LoggingConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	out := io.Writer(os.Stderr)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler).With(slog.Int("pid", os.Getpid()))
	slog.SetDefault(logger)
	return logger
}

// ForComponent returns a child logger tagged with the given component name,
// e.g. logging.ForComponent(root, "engine").
func ForComponent(root *slog.Logger, component string) *slog.Logger {
	if root == nil {
		root = slog.Default()
	}
	return root.With(slog.String("component", component))
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
