// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quant_regime"

// Registry holds all Prometheus metrics for the service. All recording
// methods are safe on a nil *Registry so components can run without metrics.
type Registry struct {
	reg *prometheus.Registry

	// Correlation engine
	Simulations      prometheus.Counter
	CholeskyFloors   prometheus.Counter
	NearestRepairs   prometheus.Counter
	ActiveAlerts     *prometheus.GaugeVec
	EstimateDuration prometheus.Histogram

	// Regime scorer
	Recomputes        *prometheus.CounterVec
	CompositeScore    prometheus.Gauge
	RegimeTransitions *prometheus.CounterVec
	IndicatorScore    *prometheus.GaugeVec

	// Persistence
	StoreErrors *prometheus.CounterVec

	// Sessions
	ActiveSessions prometheus.Gauge
}

// NewRegistry creates a registry with every collector registered, plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Simulations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Total number of simulated return series generated",
		}),
		CholeskyFloors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cholesky_floor_hits_total",
			Help:      "Cholesky pivots whose radicand was floored at epsilon",
		}),
		NearestRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nearest_correlation_repairs_total",
			Help:      "Target matrices projected onto the nearest correlation matrix",
		}),
		ActiveAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "correlation_alerts",
			Help:      "Correlation regime alerts from the latest classification by severity",
		}, []string{"severity"}),
		EstimateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "correlation_estimate_duration_seconds",
			Help:      "Duration of rolling correlation matrix estimation",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),

		Recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regime_recomputes_total",
			Help:      "Composite regime recomputations by result",
		}, []string{"result"}),
		CompositeScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regime_composite_score",
			Help:      "Latest composite regime score (-1 risk-on to +1 risk-off)",
		}),
		RegimeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regime_transitions_total",
			Help:      "Logged regime label transitions by indicator",
		}, []string{"indicator"}),
		IndicatorScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regime_indicator_score",
			Help:      "Latest per-indicator regime score",
		}, []string{"indicator"}),

		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Non-critical persistence failures by operation",
		}, []string{"operation"}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Correlation monitor sessions currently held in memory",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Simulations,
		r.CholeskyFloors,
		r.NearestRepairs,
		r.ActiveAlerts,
		r.EstimateDuration,
		r.Recomputes,
		r.CompositeScore,
		r.RegimeTransitions,
		r.IndicatorScore,
		r.StoreErrors,
		r.ActiveSessions,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// RecordSimulation counts one simulation and the Cholesky floor hits it caused.
func (r *Registry) RecordSimulation(flooredPivots int, repaired bool) {
	if r == nil {
		return
	}
	r.Simulations.Inc()
	r.CholeskyFloors.Add(float64(flooredPivots))
	if repaired {
		r.NearestRepairs.Inc()
	}
}

// ObserveEstimate records how long a rolling estimate took.
func (r *Registry) ObserveEstimate(d time.Duration) {
	if r == nil {
		return
	}
	r.EstimateDuration.Observe(d.Seconds())
}

// SetAlerts publishes the alert count per severity.
func (r *Registry) SetAlerts(high, moderate int) {
	if r == nil {
		return
	}
	r.ActiveAlerts.WithLabelValues("high").Set(float64(high))
	r.ActiveAlerts.WithLabelValues("moderate").Set(float64(moderate))
}

// RecordRecompute counts a regime recomputation.
func (r *Registry) RecordRecompute(result string) {
	if r == nil {
		return
	}
	r.Recomputes.WithLabelValues(result).Inc()
}

// SetComposite publishes the composite and per-indicator scores.
func (r *Registry) SetComposite(score float64, indicators map[string]float64) {
	if r == nil {
		return
	}
	r.CompositeScore.Set(score)
	for k, v := range indicators {
		r.IndicatorScore.WithLabelValues(k).Set(v)
	}
}

// RecordTransition counts a logged regime transition.
func (r *Registry) RecordTransition(indicator string) {
	if r == nil {
		return
	}
	r.RegimeTransitions.WithLabelValues(indicator).Inc()
}

// RecordStoreError counts a swallowed persistence failure.
func (r *Registry) RecordStoreError(operation string) {
	if r == nil {
		return
	}
	r.StoreErrors.WithLabelValues(operation).Inc()
}

// SetSessions publishes the number of live sessions.
func (r *Registry) SetSessions(n int) {
	if r == nil {
		return
	}
	r.ActiveSessions.Set(float64(n))
}
