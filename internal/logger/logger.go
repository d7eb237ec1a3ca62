// Package logger configures the process-wide zerolog logger, grounded on
// internal/logger/logger.go's shape: human-readable console output in
// development, structured JSON in production, plus a handful of
// component-scoped constructors used throughout the engine and API layers.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger used by cmd/ entry points.
func InitLogger(level string, environment string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	logLevel := parseLogLevel(level)
	zerolog.SetGlobalLevel(logLevel)

	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Caller().
			Logger()
	} else {
		log.Logger = log.With().
			Timestamp().
			Caller().
			Logger()
	}

	log.Info().
		Str("level", level).
		Str("environment", environment).
		Msg("logger initialized")
}

// New builds a standalone logger instance, used where a component needs its
// own zerolog.Logger value instead of the global log.Logger.
func New(environment, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	logLevel := parseLogLevel(level)

	if environment == "production" {
		return zerolog.New(os.Stdout).
			Level(logLevel).
			With().
			Timestamp().
			Str("service", "jonbu-patterns").
			Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "jonbu-patterns").
		Logger()
}

// NewRequestLogger scopes a logger to one HTTP request, tagged with a
// correlation ID for tracing across the analyze/stream handlers.
func NewRequestLogger(correlationID, method, path string) zerolog.Logger {
	return log.With().
		Str("correlation_id", correlationID).
		Str("method", method).
		Str("path", path).
		Str("component", "http").
		Logger()
}

// NewComponentLogger scopes a logger to a named subsystem (engine, store,
// stream, cache).
func NewComponentLogger(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// LogPerformance records a timed operation's duration and outcome.
func LogPerformance(logger zerolog.Logger, operation string, start time.Time, success bool) {
	duration := time.Since(start)
	event := logger.Info()
	if !success {
		event = logger.Error()
	}
	event.
		Str("operation", operation).
		Dur("duration", duration).
		Bool("success", success).
		Msg("performance metric")
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
