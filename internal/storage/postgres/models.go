package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/mcoot/qhunt/internal/model"
)

type eventRow struct {
	bun.BaseModel `bun:"table:qhunt_events,alias:e"`

	ID            string           `bun:"id,pk"`
	Title         string           `bun:"title,notnull"`
	Game          model.GameConfig `bun:"game,type:jsonb,notnull"`
	ConfigVersion int64            `bun:"config_version,notnull"`
	CreatedAt     time.Time        `bun:"created_at,notnull"`
	UpdatedAt     time.Time        `bun:"updated_at,notnull"`
}

func newEventRow(e *model.Event) *eventRow {
	return &eventRow{
		ID:            string(e.ID),
		Title:         e.Title,
		Game:          e.Game,
		ConfigVersion: e.Game.Version,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (r *eventRow) toModel() *model.Event {
	game := r.Game
	game.Version = r.ConfigVersion
	return &model.Event{
		ID:        model.EventID(r.ID),
		Title:     r.Title,
		Game:      game,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type playerRow struct {
	bun.BaseModel `bun:"table:qhunt_players,alias:p"`

	EventID       string     `bun:"event_id,pk"`
	ID            string     `bun:"id,pk"`
	Name          string     `bun:"name,notnull"`
	AvatarType    string     `bun:"avatar_type,notnull"`
	AvatarValue   string     `bun:"avatar_value,notnull"`
	TeamID        string     `bun:"team_id,notnull"`
	AssignedType  string     `bun:"assigned_type,notnull"`
	RegisteredAt  time.Time  `bun:"registered_at,notnull"`
	GameStartedAt *time.Time `bun:"game_started_at"`
	GameEndedAt   *time.Time `bun:"game_ended_at"`
	LastScanAt    *time.Time `bun:"last_scan_at"`
	CurrentScore  int        `bun:"current_score,notnull"`
	ScansCount    int        `bun:"scans_count,notnull"`
	IsFinished    bool       `bun:"is_finished,notnull"`
}

func newPlayerRow(p *model.Player) *playerRow {
	return &playerRow{
		EventID:       string(p.EventID),
		ID:            string(p.ID),
		Name:          p.Name,
		AvatarType:    p.AvatarType,
		AvatarValue:   p.AvatarValue,
		TeamID:        string(p.TeamID),
		AssignedType:  string(p.AssignedType),
		RegisteredAt:  p.RegisteredAt,
		GameStartedAt: p.GameStartedAt,
		GameEndedAt:   p.GameEndedAt,
		LastScanAt:    p.LastScanAt,
		CurrentScore:  p.CurrentScore,
		ScansCount:    p.ScansCount,
		IsFinished:    p.IsFinished,
	}
}

func (r *playerRow) toModel() *model.Player {
	return &model.Player{
		ID:            model.PlayerID(r.ID),
		EventID:       model.EventID(r.EventID),
		Name:          r.Name,
		AvatarType:    r.AvatarType,
		AvatarValue:   r.AvatarValue,
		TeamID:        model.TeamID(r.TeamID),
		AssignedType:  model.CodeType(r.AssignedType),
		RegisteredAt:  r.RegisteredAt,
		GameStartedAt: r.GameStartedAt,
		GameEndedAt:   r.GameEndedAt,
		LastScanAt:    r.LastScanAt,
		CurrentScore:  r.CurrentScore,
		ScansCount:    r.ScansCount,
		IsFinished:    r.IsFinished,
	}
}

type scanRow struct {
	bun.BaseModel `bun:"table:qhunt_scans,alias:s"`

	ID             string    `bun:"id,pk"`
	EventID        string    `bun:"event_id,notnull"`
	PlayerID       string    `bun:"player_id,notnull"`
	CodeID         string    `bun:"code_id,notnull"`
	CodeValue      string    `bun:"code_value,notnull"`
	CodeType       string    `bun:"code_type,notnull"`
	Points         int       `bun:"points,notnull"`
	IsValid        bool      `bun:"is_valid,notnull"`
	Method         string    `bun:"method,notnull"`
	ScannedAt      time.Time `bun:"scanned_at,notnull"`
	ScanDurationMs int64     `bun:"scan_duration_ms,notnull"`
}

func newScanRow(s model.Scan) *scanRow {
	return &scanRow{
		ID:             string(s.ID),
		EventID:        string(s.EventID),
		PlayerID:       string(s.PlayerID),
		CodeID:         string(s.CodeID),
		CodeValue:      model.NormalizeCodeValue(s.CodeValue),
		CodeType:       string(s.CodeType),
		Points:         s.Points,
		IsValid:        s.IsValid,
		Method:         string(s.Method),
		ScannedAt:      s.ScannedAt,
		ScanDurationMs: s.ScanDuration.Milliseconds(),
	}
}

func (r *scanRow) toModel() *model.Scan {
	return &model.Scan{
		ID:           model.ScanID(r.ID),
		EventID:      model.EventID(r.EventID),
		PlayerID:     model.PlayerID(r.PlayerID),
		CodeID:       model.CodeID(r.CodeID),
		CodeValue:    r.CodeValue,
		CodeType:     model.CodeType(r.CodeType),
		Points:       r.Points,
		IsValid:      r.IsValid,
		Method:       model.ScanMethod(r.Method),
		ScannedAt:    r.ScannedAt,
		ScanDuration: time.Duration(r.ScanDurationMs) * time.Millisecond,
	}
}
