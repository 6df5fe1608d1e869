package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Update the package-level tracer
	tracer = otel.Tracer("wirebus")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func TestStartPublishSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()

	ctx := context.Background()
	newCtx, span := m.StartPublishSpan(ctx, "orders.created", 12345)
	require.NotNil(t, span)
	assert.NotEqual(t, ctx, newCtx)

	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, "wirebus.publish", s.Name)
	assert.Equal(t, trace.SpanKindProducer, s.SpanKind)

	var topic string
	var eventID int64
	for _, attr := range s.Attributes {
		switch attr.Key {
		case "event.topic":
			topic = attr.Value.AsString()
		case "event.id":
			eventID = attr.Value.AsInt64()
		}
	}
	assert.Equal(t, "orders.created", topic)
	assert.Equal(t, int64(12345), eventID)
}

func TestStartReceiveSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()

	_, span := m.StartReceiveSpan(context.Background(), "orders.created", 99)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "wirebus.receive", spans[0].Name)
	assert.Equal(t, trace.SpanKindConsumer, spans[0].SpanKind)
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()

	t.Run("records error status", func(t *testing.T) {
		exporter.Reset()

		_, span := m.StartPublishSpan(context.Background(), "t", 1)
		m.EndSpanWithError(span, errors.New("encode failed"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		require.Len(t, spans[0].Events, 1, "error is recorded as a span event")
	})

	t.Run("sets ok status on success", func(t *testing.T) {
		exporter.Reset()

		_, span := m.StartPublishSpan(context.Background(), "t", 1)
		m.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("tolerates nil span", func(t *testing.T) {
		m.EndSpanWithError(nil, errors.New("ignored"))
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()

	ctx, span := m.StartPublishSpan(context.Background(), "t", 1)
	m.AddSpanEvent(ctx, "subscriber.evicted", attribute.Int("queue_depth", 8))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "subscriber.evicted", spans[0].Events[0].Name)

	// No span in context: must not panic.
	m.AddSpanEvent(context.Background(), "ignored")
}

func TestNoopSpanManager(t *testing.T) {
	m := NoopSpanManager{}

	ctx := context.Background()
	newCtx, span := m.StartPublishSpan(ctx, "t", 1)
	assert.Equal(t, ctx, newCtx, "noop leaves the context untouched")
	require.NotNil(t, span)

	_, span2 := m.StartReceiveSpan(ctx, "t", 2)
	require.NotNil(t, span2)

	m.EndSpanWithError(span, errors.New("ignored"))
	m.EndSpanWithError(nil, nil)
	m.AddSpanEvent(ctx, "ignored")
}
