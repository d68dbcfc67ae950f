// Package logging builds the process logger.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a human-readable console logger writing to out. An unknown
// level falls back to info and is reported through the returned logger.
func New(out io.Writer, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	consoleWriter := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	logger := zerolog.New(consoleWriter).Level(parsed).With().Timestamp().Logger()
	if err != nil {
		logger.Warn().Str("provided_level", level).Msg("Invalid log level provided, defaulting to 'info'")
	}
	return logger
}
