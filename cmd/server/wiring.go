package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/irfndi/quant-regime/internal/api/handlers"
	"github.com/irfndi/quant-regime/internal/config"
	"github.com/irfndi/quant-regime/internal/correlation"
	"github.com/irfndi/quant-regime/internal/database"
	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/metrics"
	"github.com/irfndi/quant-regime/internal/quant"
	"github.com/irfndi/quant-regime/internal/session"
	"github.com/irfndi/quant-regime/internal/store"
	"github.com/irfndi/quant-regime/internal/telemetry"
)

// backend is the opened persistence layer plus whatever must be closed and
// health-checked alongside it.
type backend struct {
	kv       store.KeyValueStore
	checkers map[string]handlers.HealthChecker
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the configured storage backend and wraps it in a
// circuit breaker. The memory backend needs no connection.
func openBackend(ctx context.Context, cfg *config.Config, logger logging.Logger) (*backend, error) {
	b := &backend{checkers: map[string]handlers.HealthChecker{}}

	var kv store.KeyValueStore
	switch cfg.Storage.Backend {
	case store.BackendMemory, "":
		kv = store.NewMemoryStore()
	case store.BackendRedis:
		client, err := database.NewRedisConnection(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.checkers["redis"] = client
		kv = store.NewRedisStore(client.Client, cfg.Storage.TTL)
	case store.BackendPostgres:
		db, err := database.NewPostgresConnection(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		b.checkers["postgres"] = db
		pg := store.NewPostgresStore(database.NewTracedDB(db.Pool, logger))
		if err := pg.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to prepare regime schema: %w", err)
		}
		kv = pg
	default:
		return nil, store.ValidateBackend(cfg.Storage.Backend)
	}

	if kv.Backend() != store.BackendMemory {
		kv = store.NewBreakerStore(kv, breakerConfig(cfg.Storage.Breaker), logger)
	}
	b.kv = kv
	return b, nil
}

func breakerConfig(c config.BreakerConfig) store.BreakerConfig {
	return store.BreakerConfig{
		ConsecutiveFailures: c.ConsecutiveFailures,
		OpenTimeout:         c.OpenTimeout,
		Interval:            c.Interval,
	}
}

func thresholds(c config.ThresholdsConfig) correlation.Thresholds {
	return correlation.Thresholds{
		StockBondFlip:      c.StockBondFlip,
		VIXEquityWeakening: c.VIXEquityWeakening,
		DollarEMDecoupling: c.DollarEMDecoupling,
		Deviation:          c.Deviation,
		Severe:             c.Severe,
	}
}

func telemetryConfig(cfg *config.Config) telemetry.TelemetryConfig {
	return telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Exporter:       cfg.Telemetry.Exporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
}

// monitorFactory builds one simulator and monitor per session. With a fixed
// seed, session n draws from seed+n so runs stay reproducible without two
// sessions sharing a stream.
func monitorFactory(cfg *config.Config, publisher correlation.AlertPublisher, logger logging.Logger, reg *metrics.Registry) (session.Factory, error) {
	universe := correlation.DefaultUniverse()
	baselines, err := correlation.LoadBaselines(cfg.Correlation.BaselineFile, universe)
	if err != nil {
		return nil, err
	}
	mode, err := correlation.ParseFactorizationMode(cfg.Correlation.Factorization)
	if err != nil {
		return nil, err
	}
	classifier := correlation.NewClassifier(universe, baselines, thresholds(cfg.Correlation.Thresholds))
	simCfg := correlation.SimulatorConfig{
		Days:         cfg.Simulation.Days,
		Perturbation: cfg.Simulation.Perturbation,
		Mode:         mode,
	}
	monCfg := correlation.MonitorConfig{
		Windows:       cfg.Correlation.Windows,
		DefaultWindow: cfg.Correlation.DefaultWindow,
		Days:          cfg.Simulation.Days,
	}
	tracer := telemetry.NewBusinessTracer()

	var sessions atomic.Uint64
	return func() *correlation.Monitor {
		n := sessions.Add(1)
		var seed uint64
		if cfg.Simulation.Seed != 0 {
			seed = cfg.Simulation.Seed + n - 1
		}
		sim := correlation.NewSimulator(universe, baselines, simCfg,
			correlation.WithGaussian(quant.NewGaussian(seed)),
			correlation.WithSimulatorLogger(logger),
			correlation.WithSimulatorMetrics(reg),
			correlation.WithSimulatorTracer(tracer),
		)
		opts := []correlation.MonitorOption{
			correlation.WithMonitorLogger(logger),
			correlation.WithMonitorMetrics(reg),
			correlation.WithMonitorTracer(tracer),
		}
		if publisher != nil {
			opts = append(opts, correlation.WithPublisher(publisher))
		}
		return correlation.NewMonitor(sim, classifier, monCfg, opts...)
	}, nil
}
