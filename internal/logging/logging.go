// Package logging sets up the process-wide logger: a charmbracelet/log
// handler behind the standard log/slog front. The rest of the codebase
// logs through slog package functions and never sees the handler.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/corey/rewatch/internal/config"
)

// Setup builds the logger from config and installs it as the slog default.
func Setup(cfg config.LogConfig) *slog.Logger {
	var formatter log.Formatter
	switch cfg.Format {
	case "json":
		formatter = log.JSONFormatter
	case "text":
		formatter = log.TextFormatter
	default:
		formatter = log.LogfmtFormatter
	}

	level := log.InfoLevel
	switch cfg.Level {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}

	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "rewatch",
		Formatter:       formatter,
		Level:           level,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
