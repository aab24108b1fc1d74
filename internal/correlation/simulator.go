package correlation

import (
	"context"
	"fmt"
	"sync"

	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/metrics"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/quant"
	"github.com/irfndi/quant-regime/internal/telemetry"
)

// FactorizationMode selects how a non positive-definite target matrix is handled.
type FactorizationMode string

const (
	// FactorizationFloor floors each Cholesky radicand at quant.CholeskyFloor.
	FactorizationFloor FactorizationMode = "floor"
	// FactorizationNearest projects the target onto the nearest correlation
	// matrix first, then factorizes.
	FactorizationNearest FactorizationMode = "nearest"
)

// ParseFactorizationMode validates a configured mode string.
func ParseFactorizationMode(s string) (FactorizationMode, error) {
	switch FactorizationMode(s) {
	case FactorizationFloor, "":
		return FactorizationFloor, nil
	case FactorizationNearest:
		return FactorizationNearest, nil
	default:
		return "", fmt.Errorf("unknown factorization mode %q", s)
	}
}

// SimulatorConfig parameterizes return synthesis.
type SimulatorConfig struct {
	Days         int
	Perturbation float64
	Mode         FactorizationMode
}

// DefaultSimulatorConfig is 250 trading days with ±0.15 baseline noise.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{Days: 250, Perturbation: 0.15, Mode: FactorizationFloor}
}

const maxTargetCorrelation = 0.99

// SimulationResult is one simulated run plus factorization diagnostics.
type SimulationResult struct {
	Returns       models.ReturnSeries
	Target        [][]float64
	FlooredPivots int
	Repaired      bool
}

// Simulator synthesizes correlated daily returns for a universe. It is safe
// for concurrent use; runs are serialized on the shared random source.
type Simulator struct {
	universe  *Universe
	baselines Baselines
	cfg       SimulatorConfig

	mu    sync.Mutex
	gauss *quant.Gaussian

	logger  logging.Logger
	metrics *metrics.Registry
	tracer  *telemetry.BusinessTracer

	// consecutive runs that hit the Cholesky floor
	floorStreak int
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithGaussian injects the random source, typically seeded for reproducible runs.
func WithGaussian(g *quant.Gaussian) SimulatorOption {
	return func(s *Simulator) { s.gauss = g }
}

// WithSimulatorLogger sets the diagnostics logger.
func WithSimulatorLogger(l logging.Logger) SimulatorOption {
	return func(s *Simulator) { s.logger = l }
}

// WithSimulatorMetrics sets the metrics registry.
func WithSimulatorMetrics(m *metrics.Registry) SimulatorOption {
	return func(s *Simulator) { s.metrics = m }
}

// WithSimulatorTracer sets the span tracer.
func WithSimulatorTracer(t *telemetry.BusinessTracer) SimulatorOption {
	return func(s *Simulator) { s.tracer = t }
}

// NewSimulator creates a simulator. Without WithGaussian it draws from a
// randomly seeded source, so every run differs.
func NewSimulator(u *Universe, b Baselines, cfg SimulatorConfig, opts ...SimulatorOption) *Simulator {
	if cfg.Days <= 0 {
		cfg.Days = DefaultSimulatorConfig().Days
	}
	if cfg.Mode == "" {
		cfg.Mode = FactorizationFloor
	}
	s := &Simulator{
		universe:  u,
		baselines: b,
		cfg:       cfg,
		logger:    logging.NewDiscardLogger(),
		tracer:    telemetry.NewBusinessTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gauss == nil {
		s.gauss = quant.NewGaussian(0)
	}
	return s
}

// Universe returns the instruments being simulated.
func (s *Simulator) Universe() *Universe { return s.universe }

// Config returns the simulator configuration.
func (s *Simulator) Config() SimulatorConfig { return s.cfg }

// Simulate generates days of correlated returns. days <= 0 uses the
// configured horizon.
func (s *Simulator) Simulate(ctx context.Context, days int) SimulationResult {
	if days <= 0 {
		days = s.cfg.Days
	}

	_, span := s.tracer.TraceSimulation(ctx, days, string(s.cfg.Mode))
	defer span.End()

	s.mu.Lock()
	target := s.targetMatrix()

	repaired := false
	if s.cfg.Mode == FactorizationNearest {
		if fixed, ok := quant.NearestCorrelation(target); ok {
			target = fixed
			repaired = true
		}
	}

	f := quant.Cholesky(target)

	scales := make([]float64, s.universe.Len())
	symbols := s.universe.Symbols()
	for i, sym := range symbols {
		scales[i] = s.universe.DailyVol(sym)
	}
	series := quant.CorrelatedSeries(s.gauss, f.L, scales, days)
	s.recordFloor(f.FlooredPivots)
	s.mu.Unlock()

	s.tracer.RecordFactorization(span, f.FlooredPivots, repaired)
	s.metrics.RecordSimulation(f.FlooredPivots, repaired)

	returns := models.ReturnSeries{
		Symbols: symbols,
		Returns: make(map[string][]float64, len(symbols)),
	}
	for i, sym := range symbols {
		returns.Returns[sym] = series[i]
	}

	return SimulationResult{
		Returns:       returns,
		Target:        target,
		FlooredPivots: f.FlooredPivots,
		Repaired:      repaired,
	}
}

// targetMatrix perturbs the 1-year baselines: unit diagonal, off-diagonal
// baseline + U(-p, p) clipped to ±0.99, mirrored. Pairs without a baseline
// start from 0. Caller holds s.mu.
func (s *Simulator) targetMatrix() [][]float64 {
	n := s.universe.Len()
	symbols := s.universe.Symbols()
	p := s.cfg.Perturbation

	target := quant.NewSquare(n)
	for i := 0; i < n; i++ {
		target[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			base, _ := s.baselines.OneYearFor(s.universe.PairKey(symbols[i], symbols[j]))
			v := base
			if p > 0 {
				v += s.gauss.UniformRange(-p, p)
			}
			v = min(maxTargetCorrelation, max(-maxTargetCorrelation, v))
			target[i][j] = v
			target[j][i] = v
		}
	}
	return target
}

// recordFloor warns whenever the floor triggers; the streak counter makes a
// persistent misconfiguration visible in the logs. Caller holds s.mu.
func (s *Simulator) recordFloor(floored int) {
	if floored == 0 {
		s.floorStreak = 0
		return
	}
	s.floorStreak++
	s.logger.WithComponent("simulator").Warn("Cholesky radicand floored; target matrix is not positive definite",
		"floored_pivots", floored,
		"consecutive_runs", s.floorStreak,
		"mode", string(s.cfg.Mode),
	)
}
