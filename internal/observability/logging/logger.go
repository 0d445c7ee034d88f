// Package logging configures the process-wide zerolog logger and hands out
// loggers pre-tagged with call context.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "call-compliance-analyzer"

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // defaults to RFC3339
}

// DefaultConfig returns the service defaults: info level, JSON lines.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", TimeFormat: time.RFC3339}
}

// Init configures the global logger to write to stdout.
func Init(cfg Config) {
	InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter configures the global logger to write to out. Unknown levels
// fall back to info.
func InitWithWriter(cfg Config, out io.Writer) {
	zerolog.TimeFieldFormat = cfg.TimeFormat
	if zerolog.TimeFieldFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	log.Logger = zerolog.New(writer(cfg.Format, out)).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func writer(format string, out io.Writer) io.Writer {
	if strings.EqualFold(format, "console") {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return out
}

// WithComponent tags log lines with the emitting component.
func WithComponent(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithCall tags log lines with a call ID.
func WithCall(callId string) zerolog.Logger {
	return log.With().Str("callId", callId).Logger()
}

// WithAnalysis tags log lines with a call ID and the analysis run within it.
func WithAnalysis(callId, analysisId string) zerolog.Logger {
	return log.With().
		Str("callId", callId).
		Str("analysisId", analysisId).
		Logger()
}
