package telemetry

import (
	"context"
	"testing"

	"price-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := InitTracer(context.Background(), models.MTelemetryConfig{}, "svc", "v1", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestInitTracer_RequiresServiceName(t *testing.T) {
	_, err := InitTracer(context.Background(), models.MTelemetryConfig{OTLPEndpoint: "localhost:4317"}, "", "v1", nil)
	assert.Error(t, err)
}

func TestInitTracer_Success(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	cfg := models.MTelemetryConfig{OTLPEndpoint: "localhost:4317", Insecure: true}
	shutdown, err := InitTracer(context.Background(), cfg, "price-stream-test", "v0.1", nil)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "test")
	span.End()
	assert.True(t, span.SpanContext().IsValid())

	_ = shutdown(context.Background())
}
