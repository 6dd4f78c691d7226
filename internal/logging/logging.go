// Package logging provides the process-wide structured logger of the chunkbuf
// CLI, built on zerolog. Library packages never log.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger *zerolog.Logger

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	logger = &l
}

// Init configures the global logger writing to out.
// If debug is true, sets log level to Debug.
// If human is true, uses a human-friendly console writer.
func Init(out io.Writer, debug bool, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if human {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	logger = &l
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// WithStream returns a logger carrying the 1-based sub-stream number.
func WithStream(stream int64) zerolog.Logger {
	return logger.With().Int64("stream", stream).Logger()
}

// SetLogger allows overriding the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger = &l
}
