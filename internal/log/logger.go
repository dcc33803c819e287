package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Production writes JSON lines at info;
// everything else gets the human console writer at debug.
func New(environment string) zerolog.Logger {
	production := strings.EqualFold(environment, "production")

	var out io.Writer = os.Stdout
	if !production {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	level := zerolog.DebugLevel
	if production {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	return zerolog.New(out).With().
		Timestamp().
		Str("env", environment).
		Logger()
}

// WithLevel builds a logger for a background process whose verbosity is set
// explicitly rather than derived from the environment. Unknown levels fall
// back to info.
func WithLevel(environment, level string) zerolog.Logger {
	logger := New(environment).With().Str("component", "worker").Logger()

	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	return logger
}
