package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Service information
	ServiceName    = "quant-regime"
	ServiceVersion = "1.0.0"

	httpTracerName   = "quant-regime/http"
	engineTracerName = "quant-regime/engine"
)

// TelemetryConfig holds configuration for telemetry
type TelemetryConfig struct {
	Enabled        bool
	Exporter       string // stdout, otlp or none
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRate     float64
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Enabled:        false,
		Exporter:       "stdout",
		OTLPEndpoint:   "localhost:4318",
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// Provider holds the telemetry provider
type Provider struct {
	Shutdown func(context.Context) error
	tp       *sdktrace.TracerProvider
}

// InitTelemetry installs a global tracer provider. When telemetry is disabled
// the global no-op provider is left in place and Shutdown is a no-op.
func InitTelemetry(ctx context.Context, config TelemetryConfig) (*Provider, error) {
	noop := &Provider{Shutdown: func(context.Context) error { return nil }}
	if !config.Enabled {
		return noop, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch strings.ToLower(config.Exporter) {
	case "otlp":
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(config.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	case "stdout", "":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none":
		return noop, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", config.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := newResource(config)
	if err != nil {
		return nil, err
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{Shutdown: tp.Shutdown, tp: tp}, nil
}

// newResource merges the service identity onto the SDK default resource. The
// semconv import must track the SDK's schema version or the merge fails.
func newResource(config TelemetryConfig) (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		semconv.DeploymentEnvironmentName(config.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

// GetHTTPTracer returns the tracer used by HTTP middleware.
func GetHTTPTracer() trace.Tracer {
	return otel.Tracer(httpTracerName)
}

// GetEngineTracer returns the tracer used by the correlation and regime engine.
func GetEngineTracer() trace.Tracer {
	return otel.Tracer(engineTracerName)
}
