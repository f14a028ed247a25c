package telemetry

import (
	"context"
	"fmt"
	"time"

	"price-stream/src/logger"
	"price-stream/src/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope every span of this module is created under.
const TracerName = "price-stream"

const initTimeout = 5 * time.Second

// Tracer returns the module tracer from the global provider. It is a no-op
// until InitTracer installs an exporter.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// -----------------------------------------------------------------------------

// InitTracer installs a global TracerProvider exporting over OTLP/gRPC.
// With no endpoint configured it leaves the no-op provider in place and
// returns a shutdown that does nothing.
func InitTracer(ctx context.Context, cfg models.MTelemetryConfig, serviceName, serviceVersion string, log *logger.Logger) (shutdown func(context.Context) error, err error) {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.OTLPEndpoint == "" {
		log.Debug("telemetry: no endpoint configured, tracing disabled")
		return func(context.Context) error { return nil }, nil
	}
	if serviceName == "" {
		return nil, fmt.Errorf("telemetry: serviceName is required")
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithReconnectionPeriod(5 * time.Second),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(initCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: cannot create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: cannot create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("telemetry: tracer initialized endpoint=%s service=%s version=%s", cfg.OTLPEndpoint, serviceName, serviceVersion)

	shutdown = func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, initTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("telemetry: tracer shutdown failed: %v", err)
			return err
		}
		log.Info("telemetry: tracer shutdown complete")
		return nil
	}
	return shutdown, nil
}
