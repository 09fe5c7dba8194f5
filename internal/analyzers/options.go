package analyzers

import (
	"log/slog"

	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/observability"
)

// ErrNoProvider is returned when an analyzer is built without a provider.
var ErrNoProvider = llm.ErrNoProvider

type options struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures an analyzer.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records outcomes into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func (o options) record(analyzer string, outcome Outcome) {
	if o.metrics != nil {
		o.metrics.RecordOutcome(analyzer, string(outcome))
	}
}
