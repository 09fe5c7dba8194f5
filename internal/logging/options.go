package logging

import (
	"io"
	"log/slog"
)

// Option configures a logger created with New.
type Option func(*config)

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithLevelName sets the minimum level by name ("debug", "info", ...).
// An empty name keeps the current level.
func WithLevelName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.level = ParseLevel(name)
		}
	}
}

// WithJSON switches to slog's JSON handler.
func WithJSON(json bool) Option {
	return func(c *config) { c.json = json }
}

// WithWriter overrides the output writer. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) { c.writer = w }
}

// WithSource includes the caller location.
func WithSource(source bool) Option {
	return func(c *config) { c.source = source }
}

// WithPrefix sets the prefix of pretty output.
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}
