package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "stdout", cfg.Exporter)
	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitTelemetry_Disabled(t *testing.T) {
	p, err := InitTelemetry(context.Background(), TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitTelemetry_NoneExporter(t *testing.T) {
	p, err := InitTelemetry(context.Background(), TelemetryConfig{Enabled: true, Exporter: "none"})
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitTelemetry_Stdout(t *testing.T) {
	cfg := *DefaultConfig()
	cfg.Enabled = true

	p, err := InitTelemetry(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, p.tp)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewResource_MatchesSDKSchema(t *testing.T) {
	cfg := *DefaultConfig()
	cfg.Environment = "staging"

	res, err := newResource(cfg)
	require.NoError(t, err)
	assert.Equal(t, resource.Default().SchemaURL(), res.SchemaURL())

	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, ServiceName, attrs["service.name"])
	assert.Equal(t, ServiceVersion, attrs["service.version"])
	assert.Equal(t, "staging", attrs["deployment.environment.name"])
}

func TestInitTelemetry_UnknownExporter(t *testing.T) {
	_, err := InitTelemetry(context.Background(), TelemetryConfig{Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestGetTracers(t *testing.T) {
	assert.NotNil(t, GetHTTPTracer())
	assert.NotNil(t, GetEngineTracer())
}

func newRecordingTracer() (*BusinessTracer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return NewBusinessTracerWith(tp.Tracer("test")), sr
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestBusinessTracer_TraceSimulation(t *testing.T) {
	bt, sr := newRecordingTracer()

	_, span := bt.TraceSimulation(context.Background(), 250, "floor")
	bt.RecordFactorization(span, 2, false)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "correlation.simulate", ended[0].Name())

	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, int64(250), attrs["simulation.days"].AsInt64())
	assert.Equal(t, "floor", attrs["simulation.factorization"].AsString())
	assert.Equal(t, int64(2), attrs["cholesky.floored_pivots"].AsInt64())
	assert.False(t, attrs["cholesky.repaired"].AsBool())
}

func TestBusinessTracer_TraceEstimate(t *testing.T) {
	bt, sr := newRecordingTracer()

	_, span := bt.TraceEstimate(context.Background(), 60, 8)
	span.End()

	require.Len(t, sr.Ended(), 1)
	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, int64(60), attrs["correlation.window"].AsInt64())
	assert.Equal(t, int64(8), attrs["correlation.instruments"].AsInt64())
}

func TestBusinessTracer_TraceRecompute(t *testing.T) {
	bt, sr := newRecordingTracer()

	_, span := bt.TraceRecompute(context.Background())
	bt.RecordRegime(span, "Risk-Off", 0.55, 2)
	bt.RecordError(span, errors.New("store unavailable"))
	bt.RecordError(span, nil)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "regime.recompute", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, "Risk-Off", attrs["regime.label"].AsString())
	assert.Equal(t, 0.55, attrs["regime.score"].AsFloat64())
	assert.Equal(t, int64(2), attrs["regime.transitions"].AsInt64())
}
