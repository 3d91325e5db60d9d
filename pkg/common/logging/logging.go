// Package logging provides the shared zerolog setup used by the library's
// diagnostics, such as unhandled-rejection warnings and pool admission logs.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	// Plain JSON to the stderr handle captured here. ConsoleWriter is not
	// used as the default: it consults os.Stdout/os.Stderr on every write,
	// which races with anything that swaps those globals. Hosts that want
	// pretty output can wrap Default() with their own Output writer.
	base = zerolog.New(os.Stderr).
		With().
		Timestamp().
		Logger()
}

// Default returns the process-wide base logger.
func Default() zerolog.Logger {
	return base
}

// Component returns a child logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// New returns a logger writing to w, for callers that need to capture
// diagnostics (tests, embedded hosts).
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
