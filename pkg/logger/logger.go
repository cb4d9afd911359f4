// Package logger builds the application slog pipeline: leveled text or JSON
// output, optional file rotation, sensitive-attribute masking, and Sentry
// fan-out for errors.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogsentry "github.com/samber/slog-sentry/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/horarios-app/horarios-bot/pkg/config"
)

var levelVar = new(slog.LevelVar)

// New creates the application logger according to cfg.
func New(cfg config.Config) *slog.Logger {
	levelVar.Set(ParseLevel(cfg.Logger.Level))

	var out io.Writer = os.Stdout
	if cfg.Logger.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Logger.File,
			MaxSize:    cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAge:     cfg.Logger.MaxAgeDays,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: levelVar}

	var base slog.Handler
	if cfg.Logger.Format == "json" {
		base = slog.NewJSONHandler(out, opts)
	} else {
		base = slog.NewTextHandler(out, opts)
	}

	handlers := []slog.Handler{NewMaskingHandler(base)}

	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelError}.NewSentryHandler()
		handlers = append(handlers, sentryHandler)
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}

	return slog.New(newFanoutHandler(handlers...))
}

// SetLevel adjusts the level of every logger created by New. Used by the
// config watcher for runtime level changes.
func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
