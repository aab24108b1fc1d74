package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/quant-regime/internal/api"
	"github.com/irfndi/quant-regime/internal/api/handlers"
	"github.com/irfndi/quant-regime/internal/config"
	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/marketdata"
	"github.com/irfndi/quant-regime/internal/metrics"
	"github.com/irfndi/quant-regime/internal/middleware"
	"github.com/irfndi/quant-regime/internal/positioning"
	"github.com/irfndi/quant-regime/internal/regime"
	"github.com/irfndi/quant-regime/internal/session"
	"github.com/irfndi/quant-regime/internal/store"
	"github.com/irfndi/quant-regime/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	logger, otlpLogger := newLogger(cfg)
	if otlpLogger != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otlpLogger.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to shutdown OTLP logger: %v\n", err)
			}
		}()
	}

	provider, err := telemetry.InitTelemetry(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown telemetry")
		}
	}()

	reg := metrics.NewRegistry()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	repo := store.NewRepository(be.kv, cfg.Storage.KeyPrefix, logger)
	alerts := store.NewAlertCache(repo)
	snapshots := store.NewMarketSnapshotStore(repo)

	factory, err := monitorFactory(cfg, alerts, logger, reg)
	if err != nil {
		return fmt.Errorf("failed to build correlation engine: %w", err)
	}

	regimeSvc := regime.NewService(
		marketdata.NewSnapshotSource(snapshots, logger),
		regime.WithStateStore(store.NewRegimeStateStore(repo)),
		regime.WithAlertLoader(alerts),
		regime.WithLogCap(cfg.Regime.LogCap),
		regime.WithLogger(logger),
		regime.WithMetrics(reg),
		regime.WithTracer(telemetry.NewBusinessTracer()),
	)
	scheduler := regime.NewScheduler(regimeSvc, cfg.Regime.RefreshInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	sessions := session.NewRegistry(factory,
		session.Config{TTL: cfg.Session.TTL, MaxSessions: cfg.Session.MaxSessions},
		session.WithLogger(logger),
		session.WithMetrics(reg),
	)
	sessionCtx, stopSessions := context.WithCancel(ctx)
	defer stopSessions()
	go sessions.Run(sessionCtx, cfg.Session.CleanupInterval)

	positioningSvc := positioning.NewService(cfg.Positioning.Weeks, cfg.Positioning.Seed,
		positioning.WithLogger(logger))

	health := handlers.NewHealthHandler(cfg.Telemetry.ServiceVersion, be.kv.Backend(), be.checkers)

	router := api.NewRouter(api.Dependencies{
		Logger:         logger,
		Metrics:        reg,
		Sessions:       sessions,
		Regime:         regimeSvc,
		Snapshots:      snapshots,
		Positioning:    positioningSvc,
		Health:         health,
		RefreshLimiter: middleware.NewRateLimiter(cfg.RateLimit.RefreshEvery, cfg.RateLimit.Burst),
		ServiceName:    cfg.Telemetry.ServiceName,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		RegimeLogLimit: cfg.Regime.LogLimit,
		Lookback:       cfg.Positioning.Lookback,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.LogStartup(cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		logger.LogShutdown(cfg.Telemetry.ServiceName, "signal received: "+sig.String())
	}

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.WithService(cfg.Telemetry.ServiceName).Info("Server exited gracefully")
	return nil
}

// newLogger returns the stdout JSON logger, or the OTLP-backed one when log
// export is enabled. The second value is non-nil only for OTLP.
func newLogger(cfg *config.Config) (logging.Logger, *logging.OTLPLogger) {
	logging.ConfigureLogrus(cfg.LogLevel)
	if !cfg.Telemetry.OTLPLogs {
		return logging.NewStandardLogger(cfg.LogLevel, cfg.Environment), nil
	}
	return logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        true,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
}
