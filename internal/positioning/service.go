package positioning

import (
	"context"
	"sync"
	"time"

	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/quant"
	"github.com/irfndi/quant-regime/internal/utils"
)

// SourceSimulated marks reports built from simulated records.
const SourceSimulated = "simulated"

// Report is the positioning view for one lookback.
type Report struct {
	Source      string                      `json:"source"`
	Lookback    int                         `json:"lookback"`
	Weeks       int                         `json:"weeks"`
	Contracts   []models.PositioningMetrics `json:"contracts"`
	Extremes    []models.PositioningExtreme `json:"extremes"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

// Service holds one simulated history per contract and serves reports over
// it. Histories are generated lazily and replaced by Refresh.
type Service struct {
	weeks  int
	logger logging.Logger
	now    func() time.Time

	mu        sync.Mutex
	gauss     *quant.Gaussian
	history   map[string][]models.PositioningRecord
	generated time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service simulating weeks of history. A zero seed
// draws fresh values on every refresh.
func NewService(weeks int, seed uint64, opts ...Option) *Service {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	s := &Service{
		weeks:  weeks,
		gauss:  quant.NewGaussian(seed),
		logger: logging.NewDiscardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report summarizes every contract over the last lookback weeks.
func (s *Service) Report(ctx context.Context, lookback int) (Report, error) {
	if lookback < 2 || lookback > s.weeks {
		return Report{}, utils.NewFieldError("lookback", "must be between 2 and %d, got %d", s.weeks, lookback)
	}

	s.mu.Lock()
	if s.history == nil {
		s.generate()
	}
	history, generated := s.history, s.generated
	s.mu.Unlock()

	report := Report{
		Source:      SourceSimulated,
		Lookback:    lookback,
		Weeks:       s.weeks,
		Contracts:   make([]models.PositioningMetrics, 0, len(Contracts)),
		GeneratedAt: generated,
	}
	for _, spec := range Contracts {
		if m, ok := Compute(spec.Contract, history[spec.Symbol], lookback); ok {
			report.Contracts = append(report.Contracts, m)
		}
	}
	report.Extremes = Extremes(report.Contracts)
	return report, nil
}

// Refresh replaces every history with a new simulation.
func (s *Service) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generate()
}

func (s *Service) generate() {
	now := s.now()
	history := make(map[string][]models.PositioningRecord, len(Contracts))
	for _, spec := range Contracts {
		history[spec.Symbol] = Simulate(s.gauss, spec, s.weeks, now)
	}
	s.history = history
	s.generated = now
	s.logger.WithComponent("positioning").Info("Positioning history simulated",
		"contracts", len(history),
		"weeks", s.weeks,
	)
}
