package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Simulation  SimulationConfig  `mapstructure:"simulation"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Regime      RegimeConfig      `mapstructure:"regime"`
	Positioning PositioningConfig `mapstructure:"positioning"`
	Session     SessionConfig     `mapstructure:"session"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig selects the persistence backend for regime state, the
// change log and the alert cache.
type StorageConfig struct {
	Backend   string        `mapstructure:"backend"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	Interval            time.Duration `mapstructure:"interval"`
}

// SimulationConfig drives the return simulator. A zero seed draws a random
// one per session.
type SimulationConfig struct {
	Days         int     `mapstructure:"days"`
	Seed         uint64  `mapstructure:"seed"`
	Perturbation float64 `mapstructure:"perturbation"`
}

type CorrelationConfig struct {
	DefaultWindow int              `mapstructure:"default_window"`
	Windows       []int            `mapstructure:"windows"`
	BaselineFile  string           `mapstructure:"baseline_file"`
	Factorization string           `mapstructure:"factorization"`
	Thresholds    ThresholdsConfig `mapstructure:"thresholds"`
}

type ThresholdsConfig struct {
	StockBondFlip      float64 `mapstructure:"stock_bond_flip"`
	VIXEquityWeakening float64 `mapstructure:"vix_equity_weakening"`
	DollarEMDecoupling float64 `mapstructure:"dollar_em_decoupling"`
	Deviation          float64 `mapstructure:"deviation"`
	Severe             float64 `mapstructure:"severe"`
}

type RegimeConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	LogCap          int           `mapstructure:"log_cap"`
	LogLimit        int           `mapstructure:"log_limit"`
}

type PositioningConfig struct {
	Weeks    int    `mapstructure:"weeks"`
	Lookback int    `mapstructure:"lookback"`
	Seed     uint64 `mapstructure:"seed"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig limits the manual refresh endpoints per client.
type RateLimitConfig struct {
	RefreshEvery time.Duration `mapstructure:"refresh_every"`
	Burst        int           `mapstructure:"burst"`
}

type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Exporter       string  `mapstructure:"exporter"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SampleRate     float64 `mapstructure:"sample_rate"`
	OTLPLogs       bool    `mapstructure:"otlp_logs"`
}

// Load reads .env (if present), then config.yaml from ./configs or the
// working directory, then environment variables, over the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.Environment = strings.ToLower(config.Environment)
	config.Storage.Backend = strings.ToLower(config.Storage.Backend)
	config.Correlation.Factorization = strings.ToLower(config.Correlation.Factorization)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Simulation.Days <= 0 {
		return fmt.Errorf("simulation.days must be positive, got %d", c.Simulation.Days)
	}
	if c.Simulation.Perturbation < 0 || c.Simulation.Perturbation >= 1 {
		return fmt.Errorf("simulation.perturbation must be in [0, 1), got %v", c.Simulation.Perturbation)
	}
	if len(c.Correlation.Windows) == 0 {
		return errors.New("correlation.windows must not be empty")
	}
	for _, w := range c.Correlation.Windows {
		if w < 2 || w > c.Simulation.Days {
			return fmt.Errorf("correlation window %d must be between 2 and %d", w, c.Simulation.Days)
		}
	}
	if !slices.Contains(c.Correlation.Windows, c.Correlation.DefaultWindow) {
		return fmt.Errorf("correlation.default_window %d is not one of %v", c.Correlation.DefaultWindow, c.Correlation.Windows)
	}
	switch c.Correlation.Factorization {
	case "", "floor", "nearest":
	default:
		return fmt.Errorf("unknown correlation.factorization %q", c.Correlation.Factorization)
	}
	switch c.Storage.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Regime.LogCap <= 0 {
		return fmt.Errorf("regime.log_cap must be positive, got %d", c.Regime.LogCap)
	}
	if c.Positioning.Lookback <= 1 || c.Positioning.Lookback > c.Positioning.Weeks {
		return fmt.Errorf("positioning.lookback must be between 2 and %d, got %d", c.Positioning.Weeks, c.Positioning.Lookback)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "quant_regime")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Storage
	viper.SetDefault("storage.backend", "memory")
	viper.SetDefault("storage.key_prefix", "")
	viper.SetDefault("storage.ttl", "0s")
	viper.SetDefault("storage.breaker.consecutive_failures", 3)
	viper.SetDefault("storage.breaker.open_timeout", "30s")
	viper.SetDefault("storage.breaker.interval", "60s")

	// Simulation
	viper.SetDefault("simulation.days", 250)
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.perturbation", 0.15)

	// Correlation
	viper.SetDefault("correlation.default_window", 60)
	viper.SetDefault("correlation.windows", []int{30, 60, 90})
	viper.SetDefault("correlation.baseline_file", "")
	viper.SetDefault("correlation.factorization", "floor")
	viper.SetDefault("correlation.thresholds.stock_bond_flip", 0.0)
	viper.SetDefault("correlation.thresholds.vix_equity_weakening", -0.5)
	viper.SetDefault("correlation.thresholds.dollar_em_decoupling", -0.3)
	viper.SetDefault("correlation.thresholds.deviation", 0.30)
	viper.SetDefault("correlation.thresholds.severe", 0.4)

	// Regime
	viper.SetDefault("regime.refresh_interval", "5m")
	viper.SetDefault("regime.log_cap", 50)
	viper.SetDefault("regime.log_limit", 20)

	// Positioning
	viper.SetDefault("positioning.weeks", 104)
	viper.SetDefault("positioning.lookback", 52)
	viper.SetDefault("positioning.seed", 0)

	// Sessions
	viper.SetDefault("session.ttl", "30m")
	viper.SetDefault("session.max_sessions", 1000)
	viper.SetDefault("session.cleanup_interval", "1m")

	// Rate limiting
	viper.SetDefault("rate_limit.refresh_every", "2s")
	viper.SetDefault("rate_limit.burst", 3)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "quant-regime")
	viper.SetDefault("telemetry.service_version", "0.1.0")
	viper.SetDefault("telemetry.sample_rate", 1.0)
	viper.SetDefault("telemetry.otlp_logs", false)
}
