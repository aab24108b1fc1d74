package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/models"
)

// Stats tracks repository traffic.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// Repository reads and writes JSON documents under a key prefix.
type Repository struct {
	kv     KeyValueStore
	prefix string
	logger logging.Logger

	mu    sync.Mutex
	stats Stats
}

// NewRepository creates a repository over kv.
func NewRepository(kv KeyValueStore, prefix string, logger logging.Logger) *Repository {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Repository{kv: kv, prefix: prefix, logger: logger}
}

// Backend names the underlying store.
func (r *Repository) Backend() string { return r.kv.Backend() }

// Stats returns a copy of the traffic counters.
func (r *Repository) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Repository) key(name string) string { return r.prefix + name }

// load decodes the document at name into v. found is false on a miss.
func (r *Repository) load(ctx context.Context, name string, v interface{}) (bool, error) {
	key := r.key(name)
	start := time.Now()
	data, err := r.kv.Get(ctx, key)
	elapsed := time.Since(start).Milliseconds()

	if errors.Is(err, ErrNotFound) {
		r.count(func(s *Stats) { s.Misses++ })
		r.logger.LogCacheOperation("get", key, false, elapsed)
		return false, nil
	}
	if err != nil {
		r.count(func(s *Stats) { s.Errors++ })
		r.logger.LogStoreOperation("get", r.kv.Backend(), key, elapsed, err)
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.count(func(s *Stats) { s.Errors++ })
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	r.count(func(s *Stats) { s.Hits++ })
	r.logger.LogCacheOperation("get", key, true, elapsed)
	return true, nil
}

func (r *Repository) save(ctx context.Context, name string, v interface{}) error {
	key := r.key(name)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	start := time.Now()
	err = r.kv.Set(ctx, key, data)
	r.logger.LogStoreOperation("set", r.kv.Backend(), key, time.Since(start).Milliseconds(), err)
	if err != nil {
		r.count(func(s *Stats) { s.Errors++ })
		return err
	}
	r.count(func(s *Stats) { s.Sets++ })
	return nil
}

func (r *Repository) count(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

// RegimeStateStore persists the previous composite regime state and the
// change log.
type RegimeStateStore struct {
	repo *Repository
}

func NewRegimeStateStore(repo *Repository) *RegimeStateStore {
	return &RegimeStateStore{repo: repo}
}

// Previous returns the last saved state, or nil when none was saved.
func (s *RegimeStateStore) Previous(ctx context.Context) (*models.CompositeRegimeState, error) {
	var state models.CompositeRegimeState
	found, err := s.repo.load(ctx, KeyRegimeState, &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (s *RegimeStateStore) SavePrevious(ctx context.Context, state models.CompositeRegimeState) error {
	return s.repo.save(ctx, KeyRegimeState, state)
}

// Log returns the stored change log, newest first.
func (s *RegimeStateStore) Log(ctx context.Context) ([]models.RegimeChange, error) {
	var log []models.RegimeChange
	if _, err := s.repo.load(ctx, KeyRegimeLog, &log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *RegimeStateStore) SaveLog(ctx context.Context, log []models.RegimeChange) error {
	return s.repo.save(ctx, KeyRegimeLog, log)
}

// AlertCache holds the reduced correlation alert list shared between the
// correlation monitor and the regime scorer.
type AlertCache struct {
	repo *Repository
}

func NewAlertCache(repo *Repository) *AlertCache {
	return &AlertCache{repo: repo}
}

// PublishAlerts replaces the cached alert list.
func (c *AlertCache) PublishAlerts(ctx context.Context, alerts []models.AlertSummary) error {
	if alerts == nil {
		alerts = []models.AlertSummary{}
	}
	return c.repo.save(ctx, KeyCorrAlerts, alerts)
}

// LoadAlerts returns the cached alert list. found is false when nothing was
// published yet.
func (c *AlertCache) LoadAlerts(ctx context.Context) ([]models.AlertSummary, bool, error) {
	var alerts []models.AlertSummary
	found, err := c.repo.load(ctx, KeyCorrAlerts, &alerts)
	if err != nil {
		return nil, false, err
	}
	return alerts, found, nil
}

// MarketSnapshotStore holds the latest market data snapshot.
type MarketSnapshotStore struct {
	repo *Repository
}

func NewMarketSnapshotStore(repo *Repository) *MarketSnapshotStore {
	return &MarketSnapshotStore{repo: repo}
}

func (s *MarketSnapshotStore) Save(ctx context.Context, snap models.MarketSnapshot) error {
	return s.repo.save(ctx, KeyMarketData, snap)
}

// Load returns the snapshot and whether one was saved.
func (s *MarketSnapshotStore) Load(ctx context.Context) (models.MarketSnapshot, bool, error) {
	var snap models.MarketSnapshot
	found, err := s.repo.load(ctx, KeyMarketData, &snap)
	if err != nil {
		return models.MarketSnapshot{}, false, err
	}
	return snap, found, nil
}
