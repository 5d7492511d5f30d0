package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_RegisteredFromFileNames(t *testing.T) {
	sorted := Migrations.Sorted()

	require.Len(t, sorted, 1)
	assert.Equal(t, "20260501120000", sorted[0].Name)
	assert.Equal(t, "create_ledger_tables", sorted[0].Comment)
}
