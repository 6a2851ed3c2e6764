//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package logging provides the process-wide structured logger of
// orderdw-etl. Pipeline code logs through the package helpers so that one
// Init call switches every stage between console and JSON output.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Config holds logging configuration.
type Config struct {
	Level string

	// Format is FormatPretty or FormatJSON; anything else means pretty.
	Format string

	TimeFormat string

	// Output defaults to stderr.
	Output io.Writer
}

// Init replaces the global logger. An unknown level falls back to info.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Component returns a child of the global logger tagged with name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func Debug() *zerolog.Event { return Logger.Debug() }
func Info() *zerolog.Event  { return Logger.Info() }
func Warn() *zerolog.Event  { return Logger.Warn() }
func Error() *zerolog.Event { return Logger.Error() }

// MigrationLogger routes golang-migrate output through the global logger.
type MigrationLogger struct {
	Verbosity bool
}

func (l MigrationLogger) Printf(format string, v ...any) {
	log := Component("migrate")
	log.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l MigrationLogger) Verbose() bool {
	return l.Verbosity
}

func init() {
	Init(Config{Level: "info", Format: FormatPretty})
}
