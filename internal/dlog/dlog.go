// Package dlog provides structured logging for durusd using zerolog.
// It mirrors the teacher's own Logger wrapper in shape — a package-level
// instance, level constants, and With* helpers for component-scoped
// child loggers — built on a real structured-logging library instead
// of a bare stdlib log.Logger.
package dlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger instance. Init overwrites it;
// until Init is called it defaults to an info-level console logger so
// package tests don't need to configure logging explicitly.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	Level(zerolog.InfoLevel).
	With().Timestamp().Logger()

// Level names accepted by Init's Config.Level.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Config configures the global logger.
type Config struct {
	Level      string
	JSONOutput bool
	Output     io.Writer
}

// Init (re)configures the global Logger.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var l zerolog.Logger
	if cfg.JSONOutput {
		l = zerolog.New(out)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	Logger = l.Level(level).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with a component name,
// e.g. "coordinator" or "registry".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithClient returns a child logger tagged with a client's remote
// address, for per-session log lines.
func WithClient(remoteAddr string) zerolog.Logger {
	return Logger.With().Str("client", remoteAddr).Logger()
}

// WithDatabase returns a child logger tagged with a database name.
func WithDatabase(name string) zerolog.Logger {
	return Logger.With().Str("database", name).Logger()
}
