package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/qhunt/internal/config"
	"github.com/mcoot/qhunt/internal/testutil"
)

func TestNewServer_Addr(t *testing.T) {
	cfg := config.Default().Server
	cfg.Host = "127.0.0.1"
	cfg.Port = 9191

	s := NewServer(nil, cfg, testutil.NopLogger())
	assert.Equal(t, "127.0.0.1:9191", s.Addr())

	cfg.Host = ""
	assert.Equal(t, ":9191", NewServer(nil, cfg, testutil.NopLogger()).Addr())
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	cfg := config.Default().Server
	cfg.ShutdownTimeout = time.Second

	s := NewServer(nil, cfg, testutil.NopLogger())
	assert.NoError(t, s.Shutdown(context.Background()))
}
