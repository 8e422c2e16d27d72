package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger writing to stdout, in the "json" or "console" format.
func New(level int, format string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New, writing to w.
func NewWithWriter(w io.Writer, level int, format string) zerolog.Logger {
	writer := w
	if format != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}
	return zerolog.New(writer).
		Level(zerolog.Level(level)).
		With().
		Timestamp().
		Logger()
}
