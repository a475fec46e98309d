// Package logger provides opinionated logging capabilities for the tarot system
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	pretty bool
	json   bool
	writer io.Writer
}

// New returns a *slog.Logger configured by the given options.
// With no options it writes slog's text format at Info level to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.writer == nil {
		c.writer = os.Stdout
	}

	switch {
	case c.pretty:
		return slog.New(newPrettyHandler(c.writer, c.level))
	case c.json:
		return slog.New(slog.NewJSONHandler(c.writer, &slog.HandlerOptions{Level: c.level}))
	default:
		return slog.New(slog.NewTextHandler(c.writer, &slog.HandlerOptions{Level: c.level}))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps debug, info, warn or error (any case) to a slog level.
// An empty name is Info.
func ParseLevel(name string) (slog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: use debug, info, warn or error", name)
	}
	return level, nil
}

func newPrettyHandler(w io.Writer, level slog.Level) slog.Handler {
	charmLevel := charmlog.InfoLevel
	switch {
	case level <= slog.LevelDebug:
		charmLevel = charmlog.DebugLevel
	case level >= slog.LevelError:
		charmLevel = charmlog.ErrorLevel
	case level >= slog.LevelWarn:
		charmLevel = charmlog.WarnLevel
	}

	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmLevel,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}
