package wirebus

import (
	"log/slog"

	"github.com/randalmurphal/wirebus/pkg/wirebus/observability"
)

// options holds optional collaborators shared by Publisher and Subscriber.
// All of them default to disabled: a nil logger logs nothing and the noop
// metrics/span implementations record nothing.
type options struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

func defaultOptions() options {
	return options{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// Option configures a Publisher or Subscriber.
type Option func(*options)

// WithLogger attaches a structured logger for connection lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSpanManager attaches a trace span manager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(o *options) {
		if s != nil {
			o.spans = s
		}
	}
}
