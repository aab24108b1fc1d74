// Package store is the persistence port: a small key-value interface with
// in-memory, Redis and Postgres backends, and the typed repositories built
// on top of it.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("store: key not found")

// Storage keys. Every key is namespaced by the repository prefix.
const (
	KeyRegimeState = "qrd_regime_state"
	KeyRegimeLog   = "qrd_regime_log"
	KeyMarketData  = "qrd_market_data"
	KeyCorrAlerts  = "qrd_corr_alerts"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// KeyValueStore stores JSON documents by key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Backend() string
}

// ValidateBackend reports whether name is a known backend.
func ValidateBackend(name string) error {
	switch name {
	case BackendMemory, BackendRedis, BackendPostgres:
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", name)
	}
}
