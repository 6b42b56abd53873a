// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability configures structured logging and run metrics.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// NewLogger builds a zerolog logger writing to w (stderr when nil). Format
// "console" selects the human-readable writer; anything else emits JSON.
func NewLogger(cfg types.LoggingConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if f := strings.ToLower(cfg.Format); f == "console" || f == "pretty" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(cfg.Level))
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRun tags every line of one pipeline run.
func WithRun(logger zerolog.Logger, runID, tag string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Str("tag", tag).Logger()
}
