package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qhunt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "absent.yaml"), env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, ProjectorInline, cfg.Projector.Mode)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
  write_timeout: 2m
storage:
  type: postgres
  postgres:
    dsn: postgres://qhunt@db:5432/qhunt
realtime:
  type: redis
  redis:
    url: redis://cache:6379
    projection_ttl: 24h
projector:
  mode: queue
  retry_interval: 250ms
log:
  level: debug
  format: text
`)

	cfg, err := load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, StoragePostgres, cfg.Storage.Type)
	assert.Equal(t, "postgres://qhunt@db:5432/qhunt", cfg.Storage.Postgres.DSN)
	assert.Equal(t, 20, cfg.Storage.Postgres.MaxOpenConns)
	assert.Equal(t, RealtimeRedis, cfg.Realtime.Type)
	assert.Equal(t, 24*time.Hour, cfg.Realtime.Redis.ProjectionTTL)
	assert.Equal(t, ProjectorQueue, cfg.Projector.Mode)
	assert.Equal(t, 250*time.Millisecond, cfg.Projector.RetryInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  port: 9090\n")

	cfg, err := load(path, env(map[string]string{
		"QHUNT_PORT":       "7070",
		"STORAGE_TYPE":     "postgres",
		"DATABASE_URL":     "postgres://env@db/qhunt",
		"REALTIME_TYPE":    "redis",
		"REDIS_URL":        "redis://env:6379",
		"PROJECTOR_MODE":   "queue",
		"RATE_LIMIT_RPS":   "2.5",
		"RATE_LIMIT_BURST": "5",
		"LOG_LEVEL":        "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://env@db/qhunt", cfg.Storage.Postgres.DSN)
	assert.Equal(t, "redis://env:6379", cfg.Realtime.Redis.URL)
	assert.Equal(t, ProjectorQueue, cfg.Projector.Mode)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"QHUNT_PORT": "eighty"}},
		{"unknown storage", map[string]string{"STORAGE_TYPE": "sqlite"}},
		{"postgres without dsn", map[string]string{"STORAGE_TYPE": "postgres"}},
		{"unknown realtime", map[string]string{"REALTIME_TYPE": "memcached"}},
		{"unknown projector", map[string]string{"PROJECTOR_MODE": "batch"}},
		{"bad rps", map[string]string{"RATE_LIMIT_RPS": "fast"}},
		{"zero burst", map[string]string{"RATE_LIMIT_BURST": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load("", env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestMalformedYAML(t *testing.T) {
	path := writeFile(t, "server: [unterminated")
	_, err := load(path, env(nil))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger.Warn("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	LogConfig{Level: "debug", Format: "text"}.NewLogger(&buf).Debug("hi")
	assert.Contains(t, buf.String(), "msg=hi")
}
