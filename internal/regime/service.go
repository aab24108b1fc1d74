package regime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/metrics"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/telemetry"
)

// MetricsSource supplies the current market readings.
type MetricsSource interface {
	Metrics(ctx context.Context) (models.MarketMetrics, error)
}

// StateStore persists the previous composite state and the change log.
// Previous returns nil without error when nothing was saved yet.
type StateStore interface {
	Previous(ctx context.Context) (*models.CompositeRegimeState, error)
	SavePrevious(ctx context.Context, state models.CompositeRegimeState) error
	Log(ctx context.Context) ([]models.RegimeChange, error)
	SaveLog(ctx context.Context, log []models.RegimeChange) error
}

// AlertLoader reads the cached correlation alerts. found is false when no
// cache exists.
type AlertLoader interface {
	LoadAlerts(ctx context.Context) (alerts []models.AlertSummary, found bool, err error)
}

// Result is one recomputation: the new state and the transitions it logged.
type Result struct {
	State   models.CompositeRegimeState `json:"state"`
	Changes []models.RegimeChange       `json:"changes"`
}

// Service recomputes the composite regime and maintains the change log.
// Concurrent Recompute calls share one in-flight evaluation. Storage
// failures are logged and the service carries on with its in-memory copy.
type Service struct {
	source MetricsSource
	states StateStore
	alerts AlertLoader
	logCap int

	logger  logging.Logger
	metrics *metrics.Registry
	tracer  *telemetry.BusinessTracer
	now     func() time.Time
	newID   IDFunc

	group singleflight.Group

	mu   sync.Mutex
	prev *models.CompositeRegimeState
	log  []models.RegimeChange
}

// Option configures a Service.
type Option func(*Service)

// WithStateStore sets where previous state and the change log persist.
func WithStateStore(s StateStore) Option {
	return func(svc *Service) { svc.states = s }
}

// WithAlertLoader sets the correlation alert cache.
func WithAlertLoader(l AlertLoader) Option {
	return func(svc *Service) { svc.alerts = l }
}

// WithLogCap sets how many change-log entries are kept.
func WithLogCap(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.logCap = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

func WithMetrics(r *metrics.Registry) Option {
	return func(svc *Service) { svc.metrics = r }
}

func WithTracer(t *telemetry.BusinessTracer) Option {
	return func(svc *Service) { svc.tracer = t }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// WithIDs overrides change-log id generation.
func WithIDs(id IDFunc) Option {
	return func(svc *Service) { svc.newID = id }
}

// NewService creates a Service reading from source. Without a state store
// the previous state and log live in memory only.
func NewService(source MetricsSource, opts ...Option) *Service {
	s := &Service{
		source: source,
		logCap: DefaultLogCap,
		logger: logging.NewDiscardLogger(),
		tracer: telemetry.NewBusinessTracer(),
		now:    time.Now,
		newID:  NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recompute evaluates the regime from the current inputs, logs transitions
// against the previous state and persists the new state. Concurrent callers
// share one evaluation, which outlives any single caller's cancellation.
func (s *Service) Recompute(ctx context.Context) Result {
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do("recompute", func() (interface{}, error) {
		return s.recompute(shared), nil
	})
	res := v.(Result)
	return Result{State: copyState(res.State), Changes: append([]models.RegimeChange{}, res.Changes...)}
}

// Log returns up to limit of the newest change-log entries.
func (s *Service) Log(ctx context.Context, limit int) []models.RegimeChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Recent(s.loadLog(ctx), limit)
}

// Latest returns the last evaluated state, or nil before the first one.
func (s *Service) Latest(ctx context.Context) *models.CompositeRegimeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.loadPrevious(ctx)
	if prev == nil {
		return nil
	}
	out := copyState(*prev)
	return &out
}

func (s *Service) recompute(ctx context.Context) Result {
	ctx, span := s.tracer.TraceRecompute(ctx)
	defer span.End()
	lg := s.logger.WithComponent("regime_service")
	degraded := false

	market, err := s.source.Metrics(ctx)
	if err != nil {
		degraded = true
		s.storeFailed("load_market_data", err)
		market = models.MarketMetrics{}
	}

	var snapshot AlertSnapshot
	if s.alerts != nil {
		alerts, found, err := s.alerts.LoadAlerts(ctx)
		if err != nil {
			degraded = true
			s.storeFailed("load_alerts", err)
		} else {
			snapshot = AlertSnapshot{Alerts: alerts, Found: found}
		}
	}

	at := s.now()
	state := Evaluate(Inputs(market, snapshot), at)

	s.mu.Lock()
	prev := s.loadPrevious(ctx)
	changes := DetectChanges(prev, state, at, s.newID)
	if len(changes) > 0 {
		s.log = Prepend(s.loadLog(ctx), changes, s.logCap)
		if err := s.saveLog(ctx, s.log); err != nil {
			degraded = true
			s.storeFailed("save_log", err)
		}
	}
	s.prev = &state
	if err := s.savePrevious(ctx, state); err != nil {
		degraded = true
		s.storeFailed("save_state", err)
	}
	s.mu.Unlock()

	scores := make(map[string]float64, len(state.Indicators))
	for key, c := range state.Indicators {
		scores[key] = c.Score
	}
	s.metrics.SetComposite(state.Overall.Score, scores)
	for _, c := range changes {
		s.metrics.RecordTransition(c.Indicator)
		s.logger.LogBusinessEvent("regime_transition", map[string]interface{}{
			"indicator": c.Indicator,
			"from":      c.From,
			"to":        c.To,
		})
	}
	if degraded {
		s.metrics.RecordRecompute("degraded")
	} else {
		s.metrics.RecordRecompute("ok")
	}

	s.tracer.RecordRegime(span, string(state.Overall.Label), state.Overall.Score, len(changes))
	lg.Debug("Regime recomputed",
		"label", string(state.Overall.Label),
		"score", state.Overall.Score,
		"transitions", len(changes),
	)
	return Result{State: state, Changes: changes}
}

// loadPrevious prefers the stored state and falls back to memory when the
// store fails or has nothing. Caller holds s.mu.
func (s *Service) loadPrevious(ctx context.Context) *models.CompositeRegimeState {
	if s.states == nil {
		return s.prev
	}
	prev, err := s.states.Previous(ctx)
	if err != nil {
		s.storeFailed("load_state", err)
		return s.prev
	}
	if prev == nil {
		return s.prev
	}
	return prev
}

// loadLog prefers the stored log. Caller holds s.mu.
func (s *Service) loadLog(ctx context.Context) []models.RegimeChange {
	if s.states == nil {
		return s.log
	}
	log, err := s.states.Log(ctx)
	if err != nil {
		s.storeFailed("load_log", err)
		return s.log
	}
	if log == nil {
		return s.log
	}
	return log
}

func (s *Service) savePrevious(ctx context.Context, state models.CompositeRegimeState) error {
	if s.states == nil {
		return nil
	}
	if err := s.states.SavePrevious(ctx, state); err != nil {
		return fmt.Errorf("failed to save regime state: %w", err)
	}
	return nil
}

func (s *Service) saveLog(ctx context.Context, log []models.RegimeChange) error {
	if s.states == nil {
		return nil
	}
	if err := s.states.SaveLog(ctx, log); err != nil {
		return fmt.Errorf("failed to save regime log: %w", err)
	}
	return nil
}

func (s *Service) storeFailed(operation string, err error) {
	s.metrics.RecordStoreError(operation)
	s.logger.WithOperation(operation).Warn("Regime storage unavailable; continuing in memory",
		"component", "regime_service",
		"error", err.Error(),
	)
}

func copyState(st models.CompositeRegimeState) models.CompositeRegimeState {
	indicators := make(map[string]models.IndicatorClassification, len(st.Indicators))
	for k, v := range st.Indicators {
		indicators[k] = v
	}
	st.Indicators = indicators
	return st
}
