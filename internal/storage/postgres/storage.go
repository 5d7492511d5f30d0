package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/storage"
	"github.com/mcoot/qhunt/internal/storage/postgres/migrations"
)

// Storage is the Postgres-backed ledger
type Storage struct {
	db *bun.DB
}

// New opens the database, verifies the connection and applies migrations when configured
func New(ctx context.Context, cfg Config) (*Storage, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	s := NewWithDB(bun.NewDB(sqldb, pgdialect.New()))
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing bun database
func NewWithDB(db *bun.DB) *Storage {
	db.RegisterModel((*eventRow)(nil), (*playerRow)(nil), (*scanRow)(nil))
	return &Storage{db: db}
}

// Migrate applies pending schema migrations
func (s *Storage) Migrate(ctx context.Context) error {
	migrator := migrate.NewMigrator(s.db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("postgres.Migrate: init: %w", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("postgres.Migrate: %w", err)
	}
	return nil
}

// Close closes the database pool
func (s *Storage) Close() error {
	return s.db.Close()
}

var _ storage.Storage = (*Storage)(nil)

// Event operations

func (s *Storage) CreateEvent(ctx context.Context, event *model.Event) error {
	res, err := s.db.NewInsert().
		Model(newEventRow(event)).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.CreateEvent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrEventExists
	}
	return nil
}

func (s *Storage) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	row := new(eventRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", string(id)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("postgres.GetEvent: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) UpdateGameConfig(ctx context.Context, id model.EventID, expectedVersion int64, cfg model.GameConfig, at time.Time) (*model.Event, error) {
	row := &eventRow{
		ID:            string(id),
		Game:          cfg,
		ConfigVersion: cfg.Version,
		UpdatedAt:     at,
	}
	res, err := s.db.NewUpdate().
		Model(row).
		Column("game", "config_version", "updated_at").
		WherePK().
		Where("config_version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.UpdateGameConfig: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetEvent(ctx, id); err != nil {
			return nil, err
		}
		return nil, model.ErrConfigConflict
	}
	return s.GetEvent(ctx, id)
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	res, err := s.db.NewInsert().
		Model(newPlayerRow(player)).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == "23503" {
			return model.ErrEventNotFound
		}
		return fmt.Errorf("postgres.CreatePlayer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrPlayerExists
	}
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID) (*model.Player, error) {
	row, err := selectPlayer(ctx, s.db, eventID, playerID, "")
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) ListPlayers(ctx context.Context, eventID model.EventID) ([]*model.Player, error) {
	var rows []playerRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("event_id = ?", string(eventID)).
		Order("registered_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.ListPlayers: %w", err)
	}
	players := make([]*model.Player, len(rows))
	for i := range rows {
		players[i] = rows[i].toModel()
	}
	return players, nil
}

func (s *Storage) UpdatePlayerProfile(ctx context.Context, eventID model.EventID, playerID model.PlayerID, profile model.Profile) (*model.Player, error) {
	row := new(playerRow)
	err := s.db.NewUpdate().
		Model(row).
		Set("name = ?", profile.Name).
		Set("avatar_type = ?", profile.AvatarType).
		Set("avatar_value = ?", profile.AvatarValue).
		Where("event_id = ? AND id = ?", string(eventID), string(playerID)).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("postgres.UpdatePlayerProfile: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) StartPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID, at time.Time) (*model.Player, error) {
	row := new(playerRow)
	err := s.db.NewUpdate().
		Model(row).
		Set("game_started_at = COALESCE(game_started_at, ?)", at).
		Where("event_id = ? AND id = ?", string(eventID), string(playerID)).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("postgres.StartPlayer: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) FinishPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID, end time.Time) (*model.Player, error) {
	row := new(playerRow)
	err := s.db.NewUpdate().
		Model(row).
		Set("game_ended_at = CASE WHEN is_finished THEN game_ended_at ELSE ? END", end).
		Set("is_finished = TRUE").
		Where("event_id = ? AND id = ?", string(eventID), string(playerID)).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("postgres.FinishPlayer: %w", err)
	}
	return row.toModel(), nil
}

// Ledger operations

func (s *Storage) CommitScan(ctx context.Context, commit model.ScanCommit) (*model.Player, error) {
	scan := commit.Scan
	var result *model.Player

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// holding the event row in share mode blocks config writes until commit
		var version int64
		err := tx.NewSelect().
			Model((*eventRow)(nil)).
			Column("config_version").
			Where("id = ?", string(scan.EventID)).
			For("SHARE").
			Scan(ctx, &version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrEventNotFound
			}
			return err
		}
		if version != commit.ConfigVersion {
			return model.ErrConfigConflict
		}

		row, err := selectPlayer(ctx, tx, scan.EventID, scan.PlayerID, "UPDATE")
		if err != nil {
			return err
		}
		if row.IsFinished {
			return model.ErrPlayerFinished
		}

		res, err := tx.NewInsert().
			Model(newScanRow(scan)).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.ErrAlreadyScanned
		}

		var score, count int
		err = tx.NewSelect().
			Model((*scanRow)(nil)).
			ColumnExpr("COALESCE(SUM(points), 0)").
			ColumnExpr("COUNT(*)").
			Where("event_id = ? AND player_id = ? AND is_valid", string(scan.EventID), string(scan.PlayerID)).
			Scan(ctx, &score, &count)
		if err != nil {
			return err
		}

		player := row.toModel()
		player.LastScanAt = &scan.ScannedAt
		player.ApplyTotals(score, count, commit.CompletionTarget, scan.ScannedAt)

		_, err = tx.NewUpdate().
			Model(newPlayerRow(player)).
			Column("current_score", "scans_count", "is_finished", "game_ended_at", "last_scan_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		result = player
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres.CommitScan: %w", err)
	}
	return result, nil
}

func (s *Storage) ListScans(ctx context.Context, eventID model.EventID, playerID model.PlayerID) ([]*model.Scan, error) {
	var rows []scanRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("event_id = ? AND player_id = ?", string(eventID), string(playerID)).
		Order("scanned_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.ListScans: %w", err)
	}
	return scansToModel(rows), nil
}

func (s *Storage) ListEventScans(ctx context.Context, eventID model.EventID) ([]*model.Scan, error) {
	var rows []scanRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("event_id = ?", string(eventID)).
		Order("scanned_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.ListEventScans: %w", err)
	}
	return scansToModel(rows), nil
}

func (s *Storage) DeleteEventData(ctx context.Context, eventID model.EventID) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*scanRow)(nil)).Where("event_id = ?", string(eventID)).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*playerRow)(nil)).Where("event_id = ?", string(eventID)).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres.DeleteEventData: %w", err)
	}
	return nil
}

func selectPlayer(ctx context.Context, db bun.IDB, eventID model.EventID, playerID model.PlayerID, lock string) (*playerRow, error) {
	row := new(playerRow)
	q := db.NewSelect().
		Model(row).
		Where("event_id = ? AND id = ?", string(eventID), string(playerID))
	if lock != "" {
		q = q.For(lock)
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("postgres.selectPlayer: %w", err)
	}
	return row, nil
}

func scansToModel(rows []scanRow) []*model.Scan {
	scans := make([]*model.Scan, len(rows))
	for i := range rows {
		scans[i] = rows[i].toModel()
	}
	return scans
}

func isDomainError(err error) bool {
	for _, target := range []error{
		model.ErrEventNotFound,
		model.ErrConfigConflict,
		model.ErrPlayerNotFound,
		model.ErrPlayerFinished,
		model.ErrAlreadyScanned,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
