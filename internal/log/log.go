// Package log provides structured logging for the chain storage engine.
package log

import (
	"os"

	"github.com/rs/zerolog"
)

// base is the root logger every component logger derives from. The
// engine runs as an embedded library, not a daemon with its own
// configuration surface (§6 is programmatic-only), so there is no
// level/format knob here: info-level colored console output, same as
// the teacher's default.
var base zerolog.Logger

// Storage is the component logger used by chaindb, blockfile, and
// kvstore.
var Storage zerolog.Logger

func init() {
	base = newConsoleLogger(os.Stdout)
	Storage = WithComponent("storage")
}

func newConsoleLogger(w *os.File) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    false,
	}
	return zerolog.New(output).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
}

// WithComponent returns a logger derived from base with a component
// field, for callers outside the engine (e.g. cmd/chaindb-inspect) that
// want output in the same shape as the engine's own logging.
func WithComponent(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
