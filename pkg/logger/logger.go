// Package logger owns the process-wide zerolog instance. Init wires it once
// at startup from the loaded configuration; everything else pulls the shared
// logger through Get or receives it by value at construction time.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options selects level and output format at initialisation.
type Options struct {
	// Level is the minimum emitted level: trace, debug, info, warn or error.
	// Unrecognised values fall back to info.
	Level string
	// Pretty switches to the human-readable console writer. Production runs
	// keep it off and emit one JSON object per line.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	once    sync.Once
	shared  zerolog.Logger
	hasInit bool
)

// Init builds the shared logger. Subsequent calls are no-ops and return the
// instance built by the first one.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		if opts.Pretty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}

		level := parseLevel(opts.Level)
		zerolog.SetGlobalLevel(level)

		shared = zerolog.New(out).
			Level(level).
			With().
			Timestamp().
			Caller().
			Logger()
		hasInit = true
	})
	return shared
}

// Get returns the shared logger. Calling it before Init is a wiring bug and
// panics rather than silently logging into the void.
func Get() zerolog.Logger {
	if !hasInit {
		panic("logger: Get called before Init")
	}
	return shared
}

// Reset discards the shared instance so tests can re-run Init with different
// options.
func Reset() {
	once = sync.Once{}
	shared = zerolog.Logger{}
	hasInit = false
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
