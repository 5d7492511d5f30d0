//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mcoot/qhunt/internal/storage"
	"github.com/mcoot/qhunt/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.StorageSuite
	pg *Storage
}

func TestStorageSuite(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("qhunt"),
		tcpostgres.WithUsername("qhunt"),
		tcpostgres.WithPassword("qhunt"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.DSN = dsn
	pg, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })

	s := &StorageSuite{pg: pg}
	s.New = func() storage.Storage {
		_, err := pg.db.ExecContext(ctx, "TRUNCATE qhunt_scans, qhunt_players, qhunt_events CASCADE")
		require.NoError(t, err)
		return pg
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TestMigrateIsIdempotent() {
	s.Require().NoError(s.pg.Migrate(s.Ctx))
}
