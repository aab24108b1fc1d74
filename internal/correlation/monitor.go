package correlation

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/metrics"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/telemetry"
	"github.com/irfndi/quant-regime/internal/utils"
)

// AlertPublisher receives the reduced alert list after every classification.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []models.AlertSummary) error
}

// MonitorConfig holds the window settings of a Monitor.
type MonitorConfig struct {
	Windows       []int
	DefaultWindow int
	Days          int
}

// DefaultMonitorConfig offers 30/60/90 day windows, 60 by default.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{Windows: []int{30, 60, 90}, DefaultWindow: 60, Days: 250}
}

// View is a consistent snapshot of a monitor, ready for rendering.
type View struct {
	Window      int                      `json:"window"`
	Windows     []int                    `json:"windows"`
	Instruments []models.Instrument      `json:"instruments"`
	Matrix      models.CorrelationMatrix `json:"matrix"`
	Heatmap     []models.HeatmapCell     `json:"heatmap"`
	Alerts      []models.RegimeAlert     `json:"alerts"`
	Counts      models.AlertCounts       `json:"counts"`
	Comparison  []models.ComparisonRow   `json:"comparison"`
	Days        int                      `json:"days"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Monitor is the per-session correlation state: the current window, the
// held simulated returns and the matrix and alerts derived from them.
// Operations are serialized, so a refresh never interleaves with a window
// change.
type Monitor struct {
	cfg        MonitorConfig
	sim        *Simulator
	classifier *Classifier
	publisher  AlertPublisher

	logger  logging.Logger
	metrics *metrics.Registry
	tracer  *telemetry.BusinessTracer
	now     func() time.Time

	mu        sync.Mutex
	window    int
	returns   models.ReturnSeries
	matrix    models.CorrelationMatrix
	alerts    []models.RegimeAlert
	updatedAt time.Time
	ready     bool
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithPublisher sets where alert summaries go after classification.
func WithPublisher(p AlertPublisher) MonitorOption {
	return func(m *Monitor) { m.publisher = p }
}

// WithMonitorLogger sets the logger.
func WithMonitorLogger(l logging.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = l }
}

// WithMonitorMetrics sets the metrics registry.
func WithMonitorMetrics(r *metrics.Registry) MonitorOption {
	return func(m *Monitor) { m.metrics = r }
}

// WithMonitorTracer sets the span tracer.
func WithMonitorTracer(t *telemetry.BusinessTracer) MonitorOption {
	return func(m *Monitor) { m.tracer = t }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates an uninitialized monitor. Nothing is simulated until
// the first Init, ChangeWindow or Refresh.
func NewMonitor(sim *Simulator, classifier *Classifier, cfg MonitorConfig, opts ...MonitorOption) *Monitor {
	def := DefaultMonitorConfig()
	if len(cfg.Windows) == 0 {
		cfg.Windows = def.Windows
	}
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = def.DefaultWindow
	}
	if cfg.Days <= 0 {
		cfg.Days = sim.Config().Days
	}

	m := &Monitor{
		cfg:        cfg,
		sim:        sim,
		classifier: classifier,
		logger:     logging.NewDiscardLogger(),
		tracer:     telemetry.NewBusinessTracer(),
		now:        time.Now,
		window:     cfg.DefaultWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init simulates and classifies on first use and returns the current view.
// Later calls return the existing state unchanged.
func (m *Monitor) Init(ctx context.Context) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		m.regenerate(ctx)
	}
	return m.view()
}

// ChangeWindow switches the rolling window and recomputes from the held
// returns. Windows outside the configured set are rejected.
func (m *Monitor) ChangeWindow(ctx context.Context, window int) (View, error) {
	if !slices.Contains(m.cfg.Windows, window) {
		return View{}, utils.NewFieldError("window", "must be one of %v, got %d", m.cfg.Windows, window)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = window
	if !m.ready {
		m.regenerate(ctx)
	} else {
		m.recompute(ctx)
	}
	return m.view(), nil
}

// Refresh draws a fresh return series and recomputes everything.
func (m *Monitor) Refresh(ctx context.Context) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.regenerate(ctx)
	return m.view()
}

// Window returns the current rolling window.
func (m *Monitor) Window() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window
}

// regenerate simulates new returns then recomputes. Caller holds m.mu.
func (m *Monitor) regenerate(ctx context.Context) {
	res := m.sim.Simulate(ctx, m.cfg.Days)
	m.returns = res.Returns
	m.ready = true
	m.recompute(ctx)
}

// recompute estimates the matrix for the current window, classifies it and
// publishes the alert summary. Caller holds m.mu.
func (m *Monitor) recompute(ctx context.Context) {
	universe := m.sim.Universe()

	_, span := m.tracer.TraceEstimate(ctx, m.window, universe.Len())
	start := time.Now()
	m.matrix = RollingMatrix(universe.Symbols(), m.returns, m.window)
	m.metrics.ObserveEstimate(time.Since(start))
	span.End()

	m.alerts = m.classifier.Classify(m.matrix)
	m.updatedAt = m.now()

	counts := Count(m.alerts)
	m.metrics.SetAlerts(counts.High, counts.Moderate)
	for _, a := range m.alerts {
		if a.Severity != models.SeverityHigh {
			continue
		}
		m.logger.WithPair(a.Pair).Info("High severity correlation alert",
			"type", a.Type,
			"current", a.Current,
			"baseline", a.Baseline,
		)
	}

	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishAlerts(ctx, Summarize(m.alerts)); err != nil {
		m.metrics.RecordStoreError("publish_alerts")
		m.logger.WithComponent("correlation_monitor").Warn("Failed to cache alert summary; continuing in memory",
			"error", err.Error(),
			"alerts", counts.Total,
		)
	}
}

// view copies the current state. Caller holds m.mu.
func (m *Monitor) view() View {
	universe := m.sim.Universe()
	baselines := m.classifier.baselines

	matrix := models.CorrelationMatrix{
		Symbols: append([]string(nil), m.matrix.Symbols...),
		Window:  m.matrix.Window,
		Values:  make([][]float64, len(m.matrix.Values)),
	}
	for i, row := range m.matrix.Values {
		matrix.Values[i] = append([]float64(nil), row...)
	}

	return View{
		Window:      m.window,
		Windows:     append([]int(nil), m.cfg.Windows...),
		Instruments: universe.Instruments(),
		Matrix:      matrix,
		Heatmap:     Heatmap(universe, baselines, matrix),
		Alerts:      append([]models.RegimeAlert{}, m.alerts...),
		Counts:      Count(m.alerts),
		Comparison:  Compare(universe, baselines, matrix, KeyPairs),
		Days:        m.returns.Days(),
		UpdatedAt:   m.updatedAt,
	}
}
