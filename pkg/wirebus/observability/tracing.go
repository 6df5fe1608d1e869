package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the wirebus tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("wirebus")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartPublishSpan starts a span covering one publish fan-out.
	StartPublishSpan(ctx context.Context, topic string, eventID uint64) (context.Context, trace.Span)

	// StartReceiveSpan starts a span covering delivery of one event to a
	// subscriber's buffer.
	StartReceiveSpan(ctx context.Context, topic string, eventID uint64) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartPublishSpan starts a span covering one publish fan-out.
func (m *otelSpanManager) StartPublishSpan(ctx context.Context, topic string, eventID uint64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "wirebus.publish",
		trace.WithAttributes(
			attribute.String("event.topic", topic),
			attribute.Int64("event.id", int64(eventID)),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
}

// StartReceiveSpan starts a span covering one event delivery.
func (m *otelSpanManager) StartReceiveSpan(ctx context.Context, topic string, eventID uint64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "wirebus.receive",
		trace.WithAttributes(
			attribute.String("event.topic", topic),
			attribute.Int64("event.id", int64(eventID)),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
