// Package rlog builds the structured logger reups's front end threads
// explicitly through the core (spec A1): no package-global logger, matching
// the teacher's own log/slog usage in main.go.
package rlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ParseLevel maps a config/CLI level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("rlog: unknown log level %q", name)
	}
}

// New builds a text-handler logger writing to w at the given level. Passing
// a nil w defaults to os.Stderr, the teacher's own default sink.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewFromLevelName is a convenience wrapper combining ParseLevel and New for
// front ends that only have a config-file level string on hand.
func NewFromLevelName(w io.Writer, levelName string) (*slog.Logger, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	return New(w, level), nil
}
