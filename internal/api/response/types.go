package response

import (
	"time"

	"github.com/mcoot/qhunt/internal/model"
)

// Team represents a configured team
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Code represents a configured code
type Code struct {
	ID     string `json:"id"`
	Value  string `json:"value"`
	Type   string `json:"type,omitempty"`
	Points int    `json:"points"`
	Active bool   `json:"active"`
}

// GameConfig represents an event's game configuration
type GameConfig struct {
	Version                int64      `json:"version"`
	Phase                  string     `json:"phase"`
	Mode                   string     `json:"mode"`
	GameDurationSeconds    int        `json:"game_duration_seconds"`
	TargetCodeCount        int        `json:"target_code_count"`
	EnableTypeBasedHunting bool       `json:"enable_type_based_hunting"`
	AvailableCodeTypes     []string   `json:"available_code_types"`
	Teams                  []Team     `json:"teams"`
	Codes                  []Code     `json:"codes"`
	PhaseChangedAt         time.Time  `json:"phase_changed_at"`
	GameStartedAt          *time.Time `json:"game_started_at,omitempty"`
	GameEndedAt            *time.Time `json:"game_ended_at,omitempty"`
	LastResetAt            *time.Time `json:"last_reset_at,omitempty"`
}

// GameConfigFromModel converts model.GameConfig
func GameConfigFromModel(c model.GameConfig) GameConfig {
	types := make([]string, len(c.AvailableCodeTypes))
	for i, t := range c.AvailableCodeTypes {
		types[i] = string(t)
	}
	teams := make([]Team, len(c.Teams))
	for i, t := range c.Teams {
		teams[i] = Team{ID: string(t.ID), Name: t.Name, Color: t.Color}
	}
	codes := make([]Code, len(c.Codes))
	for i, code := range c.Codes {
		codes[i] = Code{
			ID:     string(code.ID),
			Value:  code.Value,
			Type:   string(code.Type),
			Points: code.Points,
			Active: code.Active,
		}
	}
	return GameConfig{
		Version:                c.Version,
		Phase:                  string(c.Phase),
		Mode:                   string(c.Mode),
		GameDurationSeconds:    c.GameDurationSeconds,
		TargetCodeCount:        c.TargetCodeCount,
		EnableTypeBasedHunting: c.EnableTypeBasedHunting,
		AvailableCodeTypes:     types,
		Teams:                  teams,
		Codes:                  codes,
		PhaseChangedAt:         c.PhaseChangedAt,
		GameStartedAt:          c.GameStartedAt,
		GameEndedAt:            c.GameEndedAt,
		LastResetAt:            c.LastResetAt,
	}
}

// Event represents an event in API responses
type Event struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Game      GameConfig `json:"game"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// EventFromModel converts model.Event
func EventFromModel(e *model.Event) Event {
	return Event{
		ID:        string(e.ID),
		Title:     e.Title,
		Game:      GameConfigFromModel(e.Game),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// Player represents a player in API responses
type Player struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	Name          string     `json:"name"`
	AvatarType    string     `json:"avatar_type"`
	AvatarValue   string     `json:"avatar_value"`
	TeamID        string     `json:"team_id,omitempty"`
	AssignedType  string     `json:"assigned_type,omitempty"`
	RegisteredAt  time.Time  `json:"registered_at"`
	GameStartedAt *time.Time `json:"game_started_at,omitempty"`
	GameEndedAt   *time.Time `json:"game_ended_at,omitempty"`
	CurrentScore  int        `json:"current_score"`
	ScansCount    int        `json:"scans_count"`
	IsFinished    bool       `json:"is_finished"`
	// Rank is the projected leaderboard position, omitted until projected
	Rank int `json:"rank,omitempty"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:            string(p.ID),
		EventID:       string(p.EventID),
		Name:          p.Name,
		AvatarType:    p.AvatarType,
		AvatarValue:   p.AvatarValue,
		TeamID:        string(p.TeamID),
		AssignedType:  string(p.AssignedType),
		RegisteredAt:  p.RegisteredAt,
		GameStartedAt: p.GameStartedAt,
		GameEndedAt:   p.GameEndedAt,
		CurrentScore:  p.CurrentScore,
		ScansCount:    p.ScansCount,
		IsFinished:    p.IsFinished,
	}
}

// Scan represents a ledger entry
type Scan struct {
	ID             string    `json:"id"`
	PlayerID       string    `json:"player_id"`
	CodeID         string    `json:"code_id"`
	CodeValue      string    `json:"code_value"`
	CodeType       string    `json:"code_type,omitempty"`
	Points         int       `json:"points"`
	IsValid        bool      `json:"is_valid"`
	Method         string    `json:"method"`
	ScannedAt      time.Time `json:"scanned_at"`
	ScanDurationMs int64     `json:"scan_duration_ms"`
}

// ScanFromModel converts model.Scan
func ScanFromModel(s *model.Scan) Scan {
	return Scan{
		ID:             string(s.ID),
		PlayerID:       string(s.PlayerID),
		CodeID:         string(s.CodeID),
		CodeValue:      s.CodeValue,
		CodeType:       string(s.CodeType),
		Points:         s.Points,
		IsValid:        s.IsValid,
		Method:         string(s.Method),
		ScannedAt:      s.ScannedAt,
		ScanDurationMs: s.ScanDuration.Milliseconds(),
	}
}

// ScansFromModel converts a list of scans
func ScansFromModel(scans []*model.Scan) []Scan {
	out := make([]Scan, len(scans))
	for i, s := range scans {
		out[i] = ScanFromModel(s)
	}
	return out
}

// LeaderboardEntry represents one leaderboard row
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	AvatarType  string `json:"avatar_type"`
	AvatarValue string `json:"avatar_value"`
	TeamID      string `json:"team_id,omitempty"`
	Score       int    `json:"score"`
	ScansCount  int    `json:"scans_count"`
	IsFinished  bool   `json:"is_finished"`
	GameTimeMs  *int64 `json:"game_time_ms,omitempty"`
}

// LeaderboardFromModel converts ranked entries
func LeaderboardFromModel(entries []model.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = LeaderboardEntry{
			Rank:        e.Rank,
			PlayerID:    string(e.PlayerID),
			Name:        e.Name,
			AvatarType:  e.AvatarType,
			AvatarValue: e.AvatarValue,
			TeamID:      string(e.TeamID),
			Score:       e.Score,
			ScansCount:  e.ScansCount,
			IsFinished:  e.IsFinished,
		}
		if e.GameTime != nil {
			ms := e.GameTime.Milliseconds()
			out[i].GameTimeMs = &ms
		}
	}
	return out
}

// Leaderboard is the response for the leaderboard endpoint
type Leaderboard struct {
	EventID string             `json:"event_id"`
	Entries []LeaderboardEntry `json:"entries"`
}

// Stats represents aggregate counters
type Stats struct {
	PlayersCount    int       `json:"players_count"`
	PlayersPlaying  int       `json:"players_playing"`
	PlayersFinished int       `json:"players_finished"`
	TotalScans      int       `json:"total_scans"`
	TopScore        int       `json:"top_score"`
	AsOf            time.Time `json:"as_of"`
}

// StatsFromModel converts model.Stats
func StatsFromModel(s *model.Stats) Stats {
	return Stats{
		PlayersCount:    s.PlayersCount,
		PlayersPlaying:  s.PlayersPlaying,
		PlayersFinished: s.PlayersFinished,
		TotalScans:      s.TotalScans,
		TopScore:        s.TopScore,
		AsOf:            s.AsOf,
	}
}

// RecentScan represents an activity feed entry
type RecentScan struct {
	ScanID      string    `json:"scan_id"`
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	AvatarValue string    `json:"avatar_value"`
	CodeType    string    `json:"code_type,omitempty"`
	Points      int       `json:"points"`
	ScannedAt   time.Time `json:"scanned_at"`
}

// RecentScansFromModel converts the activity feed
func RecentScansFromModel(scans []model.RecentScan) []RecentScan {
	out := make([]RecentScan, len(scans))
	for i, s := range scans {
		out[i] = RecentScan{
			ScanID:      string(s.ScanID),
			PlayerID:    string(s.PlayerID),
			PlayerName:  s.PlayerName,
			AvatarValue: s.AvatarValue,
			CodeType:    string(s.CodeType),
			Points:      s.Points,
			ScannedAt:   s.ScannedAt,
		}
	}
	return out
}

// TeamScore represents a team's aggregate
type TeamScore struct {
	Rank    int    `json:"rank"`
	TeamID  string `json:"team_id"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	Score   int    `json:"score"`
	Players int    `json:"players"`
}

// TeamScoresFromModel converts team aggregates
func TeamScoresFromModel(scores []model.TeamScore) []TeamScore {
	out := make([]TeamScore, len(scores))
	for i, s := range scores {
		out[i] = TeamScore{
			Rank:    s.Rank,
			TeamID:  string(s.TeamID),
			Name:    s.Name,
			Color:   s.Color,
			Score:   s.Score,
			Players: s.Players,
		}
	}
	return out
}

// RegisterResponse is the response for the register endpoint
type RegisterResponse struct {
	Success      bool   `json:"success"`
	Player       Player `json:"player"`
	AssignedType string `json:"assigned_type,omitempty"`
}

// Hint tells a player how much of their hunt remains
type Hint struct {
	Remaining int    `json:"remaining"`
	Message   string `json:"message"`
}

// ScanResponse is the response for an accepted scan
type ScanResponse struct {
	Success        bool  `json:"success"`
	Scan           Scan  `json:"scan"`
	NewScore       int   `json:"new_score"`
	IsGameComplete bool  `json:"is_game_complete"`
	Hint           *Hint `json:"hint,omitempty"`
}

// PhaseChange is pushed to spectators when the phase moves
type PhaseChange struct {
	Phase     string    `json:"phase"`
	ChangedAt time.Time `json:"changed_at"`
}

// HealthResponse is the response for the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}
