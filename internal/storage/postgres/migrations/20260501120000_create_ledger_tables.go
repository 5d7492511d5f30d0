package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS qhunt_events (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				game JSONB NOT NULL,
				config_version BIGINT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS qhunt_players (
				event_id TEXT NOT NULL REFERENCES qhunt_events (id) ON DELETE CASCADE,
				id TEXT NOT NULL,
				name TEXT NOT NULL,
				avatar_type TEXT NOT NULL DEFAULT '',
				avatar_value TEXT NOT NULL DEFAULT '',
				team_id TEXT NOT NULL DEFAULT '',
				assigned_type TEXT NOT NULL DEFAULT '',
				registered_at TIMESTAMPTZ NOT NULL,
				game_started_at TIMESTAMPTZ,
				game_ended_at TIMESTAMPTZ,
				last_scan_at TIMESTAMPTZ,
				current_score INTEGER NOT NULL DEFAULT 0,
				scans_count INTEGER NOT NULL DEFAULT 0,
				is_finished BOOLEAN NOT NULL DEFAULT FALSE,
				PRIMARY KEY (event_id, id)
			);

			CREATE TABLE IF NOT EXISTS qhunt_scans (
				id TEXT PRIMARY KEY,
				event_id TEXT NOT NULL,
				player_id TEXT NOT NULL,
				code_id TEXT NOT NULL,
				code_value TEXT NOT NULL,
				code_type TEXT NOT NULL DEFAULT '',
				points INTEGER NOT NULL,
				is_valid BOOLEAN NOT NULL,
				method TEXT NOT NULL,
				scanned_at TIMESTAMPTZ NOT NULL,
				scan_duration_ms BIGINT NOT NULL DEFAULT 0,
				FOREIGN KEY (event_id, player_id) REFERENCES qhunt_players (event_id, id) ON DELETE CASCADE
			);

			CREATE UNIQUE INDEX IF NOT EXISTS qhunt_scans_valid_code_idx
				ON qhunt_scans (event_id, player_id, code_value) WHERE is_valid;
			CREATE INDEX IF NOT EXISTS qhunt_scans_event_idx
				ON qhunt_scans (event_id, scanned_at);
		`)
		if err != nil {
			return fmt.Errorf("failed to create ledger tables: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS qhunt_scans;
			DROP TABLE IF EXISTS qhunt_players;
			DROP TABLE IF EXISTS qhunt_events;
		`)
		if err != nil {
			return fmt.Errorf("failed to drop ledger tables: %w", err)
		}
		return nil
	})
}
