package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRegistry_RecordSimulation(t *testing.T) {
	r := NewRegistry()

	r.RecordSimulation(0, false)
	r.RecordSimulation(3, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Simulations))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.CholeskyFloors))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.NearestRepairs))
}

func TestRegistry_SetAlerts(t *testing.T) {
	r := NewRegistry()
	r.SetAlerts(2, 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ActiveAlerts.WithLabelValues("high")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.ActiveAlerts.WithLabelValues("moderate")))

	r.SetAlerts(0, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.ActiveAlerts.WithLabelValues("high")))
}

func TestRegistry_RegimeMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRecompute("ok")
	r.RecordRecompute("ok")
	r.SetComposite(-0.42, map[string]float64{"vix": -1, "yieldCurve": 0.2})
	r.RecordTransition("VIX Regime")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Recomputes.WithLabelValues("ok")))
	assert.Equal(t, -0.42, testutil.ToFloat64(r.CompositeScore))
	assert.Equal(t, 0.2, testutil.ToFloat64(r.IndicatorScore.WithLabelValues("yieldCurve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RegimeTransitions.WithLabelValues("VIX Regime")))
}

func TestRegistry_StoreErrorsAndSessions(t *testing.T) {
	r := NewRegistry()
	r.RecordStoreError("save_state")
	r.SetSessions(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.StoreErrors.WithLabelValues("save_state")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.ActiveSessions))
}

func TestRegistry_NilIsSafe(t *testing.T) {
	var r *Registry

	assert.NotPanics(t, func() {
		r.RecordSimulation(1, true)
		r.ObserveEstimate(time.Millisecond)
		r.SetAlerts(1, 1)
		r.RecordRecompute("ok")
		r.SetComposite(0, nil)
		r.RecordTransition("x")
		r.RecordStoreError("x")
		r.SetSessions(1)
	})
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.RecordSimulation(1, false)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quant_regime_cholesky_floor_hits_total 1")
}
