package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the ledger schema. Each file registers itself and is named
// after its timestamp prefix.
var Migrations = migrate.NewMigrations()
