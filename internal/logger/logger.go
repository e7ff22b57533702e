package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logger shared across the service
type Logger = zerolog.Logger

// Fields is a set of key/value pairs attached to a log line
type Fields map[string]interface{}

// New builds a logger writing to stdout. format is "json" or "pretty".
func New(format, level string) Logger {
	return NewWithWriter(os.Stdout, format, level)
}

// NewWithWriter builds a logger writing to w
func NewWithWriter(w io.Writer, format, level string) Logger {
	out := w
	if format == "pretty" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return zerolog.Nop()
}

// With returns a child logger carrying fields
func With(logger Logger, fields Fields) Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
