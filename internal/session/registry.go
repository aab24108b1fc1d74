// Package session keeps one correlation monitor per client so concurrent
// dashboards never share window or return state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/irfndi/quant-regime/internal/correlation"
	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/metrics"
)

// Factory builds a fresh monitor for a new session.
type Factory func() *correlation.Monitor

// Config bounds the registry.
type Config struct {
	TTL         time.Duration
	MaxSessions int
}

// DefaultConfig keeps idle sessions for 30 minutes, at most 1000 of them.
func DefaultConfig() Config {
	return Config{TTL: 30 * time.Minute, MaxSessions: 1000}
}

type entry struct {
	monitor  *correlation.Monitor
	lastSeen time.Time
}

// Registry maps session ids to monitors. Idle sessions expire after the TTL;
// when full, the least recently used session is evicted.
type Registry struct {
	factory Factory
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(l logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(factory Factory, cfg Config, opts ...Option) *Registry {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	r := &Registry{
		factory:  factory,
		cfg:      cfg,
		logger:   logging.NewDiscardLogger(),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the monitor for id. An empty, unknown or expired id starts
// a new session; the returned id is the one the client must send next time.
func (r *Registry) Acquire(id string) (*correlation.Monitor, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.sessions[id]; ok && now.Sub(e.lastSeen) < r.cfg.TTL {
		e.lastSeen = now
		return e.monitor, id
	}
	delete(r.sessions, id)

	if len(r.sessions) >= r.cfg.MaxSessions {
		r.evictOldest()
	}
	newID := uuid.NewString()
	e := &entry{monitor: r.factory(), lastSeen: now}
	r.sessions[newID] = e
	r.report()

	r.logger.WithSession(newID).Debug("Session created", "sessions", len(r.sessions))
	return e.monitor, newID
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Cleanup removes expired sessions and returns how many were removed.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) >= r.cfg.TTL {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.report()
		r.logger.WithComponent("session").Info("Expired sessions removed",
			"removed", removed,
			"remaining", len(r.sessions),
		)
	}
	return removed
}

// Run cleans up every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}

func (r *Registry) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, e := range r.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	if oldestID != "" {
		delete(r.sessions, oldestID)
		r.logger.WithSession(oldestID).Warn("Session evicted, registry full", "max_sessions", r.cfg.MaxSessions)
	}
}

func (r *Registry) report() {
	if r.metrics != nil {
		r.metrics.SetSessions(len(r.sessions))
	}
}
