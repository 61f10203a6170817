package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a console logger tagged with the given component name.
func NewLogger(name string) zerolog.Logger {
	return newLogger(name, consoleWriter())
}

// NewTeeLogger returns a logger that writes the human-readable stream to
// stderr and a structured JSON stream to w, typically the run log file in
// the output directory.
func NewTeeLogger(name string, w io.Writer) zerolog.Logger {
	return newLogger(name, zerolog.MultiLevelWriter(consoleWriter(), w))
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

func newLogger(name string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Str("component", name).Logger()
}
