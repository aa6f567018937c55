// Package logger configures the process-wide zerolog instance.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var base zerolog.Logger

// Initialize sets up the global logger. Call once at startup.
func Initialize(level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	base = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}).With().Timestamp().Logger()

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = base
}

// ForComponent returns a logger tagged with a component field.
func ForComponent(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
