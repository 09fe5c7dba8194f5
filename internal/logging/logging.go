// Package logging builds the *slog.Logger handed to every component.
// Terminal output goes through charmbracelet/log; services can switch to
// slog's JSON handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// EnvLevel names the environment variable that overrides the log level.
const EnvLevel = "LODESTONE_LOG_LEVEL"

type config struct {
	level  slog.Level
	json   bool
	source bool
	prefix string
	writer io.Writer
}

// New creates a logger. Without options it writes human-readable output to
// stderr at the level named by LODESTONE_LOG_LEVEL (info by default).
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  ParseLevel(os.Getenv(EnvLevel)),
		prefix: "lodestone",
	}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer = os.Stderr
	if c.writer != nil {
		w = c.writer
	}

	if c.json {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))
	}

	h := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		ReportCaller:    c.source,
		Prefix:          c.prefix,
		Level:           charmLevel(c.level),
	})
	return slog.New(h)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func charmLevel(l slog.Level) log.Level {
	switch {
	case l <= slog.LevelDebug:
		return log.DebugLevel
	case l <= slog.LevelInfo:
		return log.InfoLevel
	case l <= slog.LevelWarn:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
