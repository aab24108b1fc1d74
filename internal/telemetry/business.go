package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessTracer provides utilities for tracing engine operations.
// It tracks domain activities like return simulation, correlation estimation
// and regime recomputation.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer creates a new instance of BusinessTracer.
//
// Returns:
//   - A pointer to a BusinessTracer bound to the global engine tracer.
func NewBusinessTracer() *BusinessTracer {
	return &BusinessTracer{tracer: GetEngineTracer()}
}

// NewBusinessTracerWith creates a BusinessTracer on an explicit tracer.
//
// Parameters:
//   - tracer: The tracer to start spans on. Tests pass an in-memory provider's tracer.
func NewBusinessTracerWith(tracer trace.Tracer) *BusinessTracer {
	return &BusinessTracer{tracer: tracer}
}

// TraceSimulation starts a span for a return simulation run.
//
// Parameters:
//   - ctx: The parent context.
//   - days: The simulation horizon in trading days.
//   - mode: The factorization mode in use.
//
// Returns:
//   - A context containing the new span.
//   - The created span. Callers must End it.
func (bt *BusinessTracer) TraceSimulation(ctx context.Context, days int, mode string) (context.Context, trace.Span) {
	return bt.start(ctx, "correlation.simulate",
		attribute.Int("simulation.days", days),
		attribute.String("simulation.factorization", mode),
	)
}

// RecordFactorization adds factorization diagnostics to a simulation span.
//
// Parameters:
//   - span: The span to update.
//   - flooredPivots: Number of Cholesky pivots floored at epsilon.
//   - repaired: Whether the target matrix was projected before factorizing.
func (bt *BusinessTracer) RecordFactorization(span trace.Span, flooredPivots int, repaired bool) {
	span.SetAttributes(
		attribute.Int("cholesky.floored_pivots", flooredPivots),
		attribute.Bool("cholesky.repaired", repaired),
	)
}

// TraceEstimate starts a span for a rolling correlation estimate.
func (bt *BusinessTracer) TraceEstimate(ctx context.Context, window int, instruments int) (context.Context, trace.Span) {
	return bt.start(ctx, "correlation.estimate",
		attribute.Int("correlation.window", window),
		attribute.Int("correlation.instruments", instruments),
	)
}

// TraceRecompute starts a span for a composite regime recomputation.
func (bt *BusinessTracer) TraceRecompute(ctx context.Context) (context.Context, trace.Span) {
	return bt.start(ctx, "regime.recompute")
}

// RecordRegime adds the composite outcome to a recompute span.
//
// Parameters:
//   - span: The span to update.
//   - label: The overall regime label.
//   - score: The composite score.
//   - transitions: How many change-log entries the recompute produced.
func (bt *BusinessTracer) RecordRegime(span trace.Span, label string, score float64, transitions int) {
	span.SetAttributes(
		attribute.String("regime.label", label),
		attribute.Float64("regime.score", score),
		attribute.Int("regime.transitions", transitions),
	)
}

// RecordError marks a span as failed without ending it.
func (bt *BusinessTracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (bt *BusinessTracer) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
