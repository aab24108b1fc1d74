package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/quant-regime/internal/config"
	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/metrics"
	"github.com/irfndi/quant-regime/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		LogLevel:    "error",
		Storage: config.StorageConfig{
			Backend:   "memory",
			KeyPrefix: "test:",
		},
		Simulation: config.SimulationConfig{Days: 120, Seed: 7, Perturbation: 0.15},
		Correlation: config.CorrelationConfig{
			DefaultWindow: 60,
			Windows:       []int{30, 60, 90},
			Factorization: "floor",
			Thresholds: config.ThresholdsConfig{
				StockBondFlip:      0,
				VIXEquityWeakening: -0.5,
				DollarEMDecoupling: -0.3,
				Deviation:          0.30,
				Severe:             0.4,
			},
		},
		Telemetry: config.TelemetryConfig{
			Exporter:       "none",
			ServiceName:    "quant-regime-test",
			ServiceVersion: "test",
			SampleRate:     0.5,
		},
	}
}

func TestOpenBackend_Memory(t *testing.T) {
	be, err := openBackend(context.Background(), testConfig(), logging.NewDiscardLogger())
	require.NoError(t, err)
	defer be.Close()

	assert.Equal(t, store.BackendMemory, be.kv.Backend())
	assert.Empty(t, be.checkers)
	_, isBreaker := be.kv.(*store.BreakerStore)
	assert.False(t, isBreaker)
}

func TestOpenBackend_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Storage.Backend = "redis"
	cfg.Redis = config.RedisConfig{Host: mr.Host(), Port: port}

	be, err := openBackend(context.Background(), cfg, logging.NewDiscardLogger())
	require.NoError(t, err)
	defer be.Close()

	assert.Equal(t, store.BackendRedis, be.kv.Backend())
	assert.Contains(t, be.checkers, "redis")
	assert.NoError(t, be.checkers["redis"].HealthCheck(context.Background()))

	breaker, ok := be.kv.(*store.BreakerStore)
	require.True(t, ok)
	assert.Equal(t, "closed", breaker.State())

	require.NoError(t, be.kv.Set(context.Background(), "test:k", []byte("v")))
	got, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestOpenBackend_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	mr.Close()

	cfg := testConfig()
	cfg.Storage.Backend = "redis"
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: port}

	_, err := openBackend(context.Background(), cfg, logging.NewDiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestOpenBackend_Unknown(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Backend = "etcd"

	_, err := openBackend(context.Background(), cfg, logging.NewDiscardLogger())
	assert.Error(t, err)
}

func TestConfigMapping(t *testing.T) {
	cfg := testConfig()

	th := thresholds(cfg.Correlation.Thresholds)
	assert.Equal(t, -0.5, th.VIXEquityWeakening)
	assert.Equal(t, -0.3, th.DollarEMDecoupling)
	assert.Equal(t, 0.30, th.Deviation)
	assert.Equal(t, 0.4, th.Severe)

	bc := breakerConfig(config.BreakerConfig{ConsecutiveFailures: 5, OpenTimeout: time.Second, Interval: time.Minute})
	assert.Equal(t, uint32(5), bc.ConsecutiveFailures)
	assert.Equal(t, time.Second, bc.OpenTimeout)
	assert.Equal(t, time.Minute, bc.Interval)

	tc := telemetryConfig(cfg)
	assert.Equal(t, "quant-regime-test", tc.ServiceName)
	assert.Equal(t, "test", tc.Environment)
	assert.Equal(t, "none", tc.Exporter)
	assert.Equal(t, 0.5, tc.SampleRate)
}

func TestMonitorFactory_SeededSessionsDiffer(t *testing.T) {
	cfg := testConfig()
	ctx := context.Background()

	factory, err := monitorFactory(cfg, nil, logging.NewDiscardLogger(), metrics.NewRegistry())
	require.NoError(t, err)

	first := factory().Init(ctx)
	second := factory().Init(ctx)
	assert.Equal(t, 60, first.Window)
	assert.Equal(t, 120, first.Days)
	assert.NotEqual(t, first.Matrix.Values, second.Matrix.Values)

	// A fresh factory with the same seed replays the same first session.
	again, err := monitorFactory(cfg, nil, logging.NewDiscardLogger(), metrics.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, first.Matrix.Values, again().Init(ctx).Matrix.Values)
}

func TestMonitorFactory_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Correlation.Factorization = "svd"
	_, err := monitorFactory(cfg, nil, logging.NewDiscardLogger(), nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Correlation.BaselineFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = monitorFactory(cfg, nil, logging.NewDiscardLogger(), nil)
	assert.Error(t, err)
}

func TestMonitorFactory_BaselineOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baselines.yaml")
	require.NoError(t, os.WriteFile(path, []byte("one_year:\n  TLT-SPY: 0.10\n"), 0o600))

	cfg := testConfig()
	cfg.Correlation.BaselineFile = path
	factory, err := monitorFactory(cfg, nil, logging.NewDiscardLogger(), nil)
	require.NoError(t, err)

	view := factory().Init(context.Background())
	for _, row := range view.Comparison {
		if row.Pair == "SPY-TLT" {
			assert.Equal(t, 0.10, row.Baseline1Y)
			return
		}
	}
	t.Fatal("SPY-TLT missing from comparison")
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig()
	logger, otlp := newLogger(cfg)
	assert.NotNil(t, logger)
	assert.Nil(t, otlp)
}
