// Package config loads server settings from a YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	RealtimeMemory = "memory"
	RealtimeRedis  = "redis"

	ProjectorInline = "inline"
	ProjectorQueue  = "queue"
)

// Config is the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Projector ProjectorConfig `yaml:"projector"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the authoritative ledger
type StorageConfig struct {
	Type     string         `yaml:"type"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate"`
}

// RealtimeConfig selects and configures the projection store
type RealtimeConfig struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URL           string        `yaml:"url"`
	PoolSize      int           `yaml:"pool_size"`
	MinIdleConns  int           `yaml:"min_idle_conns"`
	ProjectionTTL time.Duration `yaml:"projection_ttl"`
}

// ProjectorConfig chooses how committed updates reach the projection
type ProjectorConfig struct {
	Mode          string        `yaml:"mode"`
	Buffer        int64         `yaml:"buffer"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// RateLimitConfig throttles player-facing endpoints per client IP
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|text
}

// Default returns a configuration that runs everything in memory
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Type: StorageMemory,
			Postgres: PostgresConfig{
				MaxOpenConns:    20,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				Migrate:         true,
			},
		},
		Realtime: RealtimeConfig{
			Type: RealtimeMemory,
			Redis: RedisConfig{
				URL:           "redis://localhost:6379",
				PoolSize:      10,
				MinIdleConns:  2,
				ProjectionTTL: 72 * time.Hour,
			},
		},
		Projector: ProjectorConfig{
			Mode:          ProjectorInline,
			Buffer:        256,
			MaxRetries:    3,
			RetryInterval: 100 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config.Load: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("QHUNT_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := getenv("QHUNT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid QHUNT_PORT value: %v", err)
		}
		cfg.Server.Port = port
	}
	if v := getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := getenv("DATABASE_MIGRATE"); v != "" {
		cfg.Storage.Postgres.Migrate = v == "true"
	}
	if v := getenv("REALTIME_TYPE"); v != "" {
		cfg.Realtime.Type = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		cfg.Realtime.Redis.URL = v
	}
	if v := getenv("PROJECTOR_MODE"); v != "" {
		cfg.Projector.Mode = v
	}
	if v := getenv("RATE_LIMIT_ENABLED"); v != "" {
		cfg.RateLimit.Enabled = v == "true"
	}
	if v := getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS value: %v", err)
		}
		cfg.RateLimit.RequestsPerSecond = rps
	}
	if v := getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST value: %v", err)
		}
		cfg.RateLimit.Burst = burst
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// Validate checks that the backend choices are known and complete
func (c Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New("DATABASE_URL required when storage type is postgres")
		}
	default:
		return fmt.Errorf("invalid storage type %q: must be 'memory' or 'postgres'", c.Storage.Type)
	}

	switch c.Realtime.Type {
	case RealtimeMemory:
	case RealtimeRedis:
		if c.Realtime.Redis.URL == "" {
			return errors.New("REDIS_URL required when realtime type is redis")
		}
	default:
		return fmt.Errorf("invalid realtime type %q: must be 'memory' or 'redis'", c.Realtime.Type)
	}

	switch c.Projector.Mode {
	case ProjectorInline, ProjectorQueue:
	default:
		return fmt.Errorf("invalid projector mode %q: must be 'inline' or 'queue'", c.Projector.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rate limit needs a positive rate and burst")
	}
	return nil
}

// NewLogger builds the process logger described by the config
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(l.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(l.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
