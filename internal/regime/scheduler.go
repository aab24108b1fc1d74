package regime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/irfndi/quant-regime/internal/logging"
)

// Scheduler recomputes the regime on a fixed interval.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	logger   logging.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  atomic.Bool
}

// NewScheduler creates a scheduler for svc. A non-positive interval disables
// periodic recomputation; Start then only runs the initial evaluation.
func NewScheduler(svc *Service, interval time.Duration, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		svc:      svc,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start runs an initial recompute and then one per interval until Stop.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logger.WithComponent("regime_scheduler").Info("Starting regime scheduler",
		"interval", s.interval.String(),
	)

	go func() {
		defer close(s.done)
		s.run()

		if s.interval <= 0 {
			<-s.ctx.Done()
			return
		}
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.run()
			}
		}
	}()
}

// Stop ends the schedule and waits for an in-flight recompute to finish.
func (s *Scheduler) Stop() {
	s.logger.WithComponent("regime_scheduler").Info("Stopping regime scheduler")
	s.cancel()
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) run() {
	res := s.svc.Recompute(s.ctx)
	if len(res.Changes) > 0 {
		s.logger.WithComponent("regime_scheduler").Info("Regime transitions detected",
			"label", string(res.State.Overall.Label),
			"transitions", len(res.Changes),
		)
	}
}
