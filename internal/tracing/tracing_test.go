package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEndWithError(t *testing.T) {
	t.Run("records the error and sets status", func(t *testing.T) {
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

		_, span := tp.Tracer("test").Start(context.Background(), "op")
		EndWithError(span, errors.New("boom"))
		span.End()

		spans := rec.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, "boom", spans[0].Status().Description)
		require.Len(t, spans[0].Events(), 1)
	})

	t.Run("nil error is a no-op", func(t *testing.T) {
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

		_, span := tp.Tracer("test").Start(context.Background(), "op")
		EndWithError(span, nil)
		span.End()

		spans := rec.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Unset, spans[0].Status().Code)
		assert.Empty(t, spans[0].Events())
	})
}
