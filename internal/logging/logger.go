// Package logging builds the process-wide zerolog logger from config.
// Components derive their own loggers with With().Str("component", ...).
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level and output format
type Config struct {
	// Level is one of trace, debug, info, warn, error
	Level string `json:"level"`
	// JSONFormat emits machine-readable JSON lines; when false a
	// human-friendly console writer is used instead.
	JSONFormat bool `json:"json_format"`
}

// New builds the root logger. Unknown level names fall back to info
// rather than failing startup.
func New(cfg Config) zerolog.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput builds a logger writing to the given sink
func NewWithOutput(cfg Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if !cfg.JSONFormat {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
