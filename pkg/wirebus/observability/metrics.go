package observability

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records bus metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPublish records one published event and how the fan-out went:
	// how many connections the frame was enqueued for and how many slow
	// consumers were evicted.
	RecordPublish(ctx context.Context, topic string, enqueued, evicted int)

	// RecordConnectionOpened records an accepted subscriber connection.
	RecordConnectionOpened(ctx context.Context)

	// RecordConnectionClosed records a subscriber connection ending.
	RecordConnectionClosed(ctx context.Context)

	// RecordReceive records an event accepted into a subscriber's buffer,
	// and whether an older event was dropped to make room.
	RecordReceive(ctx context.Context, topic string, dropped bool)

	// RecordReconnect records a subscriber reconnect attempt.
	RecordReconnect(ctx context.Context, success bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	published   metric.Int64Counter
	enqueued    metric.Int64Counter
	evictions   metric.Int64Counter
	connections metric.Int64UpDownCounter
	received    metric.Int64Counter
	bufferDrops metric.Int64Counter
	reconnects  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("wirebus")

	published, err := meter.Int64Counter("wirebus.events.published",
		metric.WithDescription("Number of events published"),
	)
	if err != nil {
		return nil, err
	}

	enqueued, err := meter.Int64Counter("wirebus.events.enqueued",
		metric.WithDescription("Number of event frames enqueued for delivery"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter("wirebus.connections.evicted",
		metric.WithDescription("Number of slow subscriber connections evicted"),
	)
	if err != nil {
		return nil, err
	}

	connections, err := meter.Int64UpDownCounter("wirebus.connections.active",
		metric.WithDescription("Number of active subscriber connections"),
	)
	if err != nil {
		return nil, err
	}

	received, err := meter.Int64Counter("wirebus.events.received",
		metric.WithDescription("Number of events accepted into receive buffers"),
	)
	if err != nil {
		return nil, err
	}

	bufferDrops, err := meter.Int64Counter("wirebus.events.buffer_drops",
		metric.WithDescription("Number of buffered events dropped to admit newer ones"),
	)
	if err != nil {
		return nil, err
	}

	reconnects, err := meter.Int64Counter("wirebus.subscriber.reconnects",
		metric.WithDescription("Number of subscriber reconnect attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		published:   published,
		enqueued:    enqueued,
		evictions:   evictions,
		connections: connections,
		received:    received,
		bufferDrops: bufferDrops,
		reconnects:  reconnects,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordPublish records one published event.
func (m *otelMetrics) RecordPublish(ctx context.Context, topic string, enqueued, evicted int) {
	attrs := metric.WithAttributes(attribute.String("topic", topic))
	m.published.Add(ctx, 1, attrs)
	m.enqueued.Add(ctx, int64(enqueued), attrs)
	if evicted > 0 {
		m.evictions.Add(ctx, int64(evicted))
	}
}

// RecordConnectionOpened records an accepted connection.
func (m *otelMetrics) RecordConnectionOpened(ctx context.Context) {
	m.connections.Add(ctx, 1)
}

// RecordConnectionClosed records a closed connection.
func (m *otelMetrics) RecordConnectionClosed(ctx context.Context) {
	m.connections.Add(ctx, -1)
}

// RecordReceive records an event entering a receive buffer.
func (m *otelMetrics) RecordReceive(ctx context.Context, topic string, dropped bool) {
	m.received.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
	if dropped {
		m.bufferDrops.Add(ctx, 1)
	}
}

// RecordReconnect records a reconnect attempt.
func (m *otelMetrics) RecordReconnect(ctx context.Context, success bool) {
	m.reconnects.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
