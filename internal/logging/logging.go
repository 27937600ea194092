// Package logging builds the root zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a logger writing to out at the given level ("debug", "info",
// "warn" or "error"). When pretty is set, output goes through zerolog's
// console writer instead of JSON lines. A nil out means stderr.
func New(level string, pretty bool, out io.Writer) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("app", "mudra").
		Logger(), nil
}

// ParseLevel maps a configured level name to a zerolog level. An empty name
// means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch level {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
