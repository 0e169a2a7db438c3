// Package logger builds the application's slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Proton-105/storefront-bot/pkg/config"
)

// New creates the application logger and returns the level variable backing it,
// so that callers can change verbosity at runtime.
func New(cfg config.Config) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Logger.Level))

	var out io.Writer = os.Stdout
	if cfg.Logger.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logger.File,
			MaxSize:    cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAge:     cfg.Logger.MaxAgeDays,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: level.Level() <= slog.LevelDebug}

	var base slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "text") {
		base = slog.NewTextHandler(out, opts)
	} else {
		base = slog.NewJSONHandler(out, opts)
	}

	var handler slog.Handler = NewMaskingHandler(base)
	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelError, AddSource: true}.NewSentryHandler()
		handler = NewFanoutHandler(handler, NewMaskingHandler(sentryHandler))
	}

	log := slog.New(handler).With(slog.String("env", cfg.AppEnv))
	return log, level
}

// ParseLevel converts a config level name to slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
