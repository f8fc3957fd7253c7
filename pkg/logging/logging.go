// Package logging configures the shared zerolog logger.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to stderr. The level comes from
// PIPECOST_LOG_LEVEL (default info).
func New(service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(os.Getenv("PIPECOST_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
