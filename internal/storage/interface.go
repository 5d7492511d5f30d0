package storage

import (
	"context"
	"time"

	"github.com/mcoot/qhunt/internal/model"
)

// Storage is the authoritative store: events with their game config, players and the scan ledger
type Storage interface {
	// Event operations
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id model.EventID) (*model.Event, error)
	// UpdateGameConfig replaces the game config only if the stored version equals expectedVersion,
	// otherwise it returns model.ErrConfigConflict
	UpdateGameConfig(ctx context.Context, id model.EventID, expectedVersion int64, cfg model.GameConfig, at time.Time) (*model.Event, error)

	// Player operations
	// CreatePlayer inserts a new player, returning model.ErrPlayerExists if one is already stored
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID) (*model.Player, error)
	ListPlayers(ctx context.Context, eventID model.EventID) ([]*model.Player, error)
	UpdatePlayerProfile(ctx context.Context, eventID model.EventID, playerID model.PlayerID, profile model.Profile) (*model.Player, error)
	// StartPlayer stamps GameStartedAt unless it is already set
	StartPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID, at time.Time) (*model.Player, error)
	// FinishPlayer marks the player finished at end unless already finished
	FinishPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID, end time.Time) (*model.Player, error)

	// Ledger operations
	// CommitScan appends a scan and refreshes the player's cached totals in one atomic step.
	// It fails with model.ErrConfigConflict if the config version moved, model.ErrAlreadyScanned
	// if the player already holds a valid scan of the same code value, and
	// model.ErrPlayerFinished if the player finished in the meantime.
	CommitScan(ctx context.Context, commit model.ScanCommit) (*model.Player, error)
	ListScans(ctx context.Context, eventID model.EventID, playerID model.PlayerID) ([]*model.Scan, error)
	ListEventScans(ctx context.Context, eventID model.EventID) ([]*model.Scan, error)
	// DeleteEventData removes every player and scan of the event, keeping the event itself
	DeleteEventData(ctx context.Context, eventID model.EventID) error
}

// Realtime is the low-latency projection store read by spectator displays.
// It is derived from Storage and may lag behind it.
type Realtime interface {
	// ReplaceLeaderboard overwrites the whole leaderboard with already ranked entries
	ReplaceLeaderboard(ctx context.Context, eventID model.EventID, entries []model.LeaderboardEntry) error
	// Leaderboard returns all entries in rank order
	Leaderboard(ctx context.Context, eventID model.EventID) ([]model.LeaderboardEntry, error)
	// Top returns the first n entries in rank order
	Top(ctx context.Context, eventID model.EventID, n int) ([]model.LeaderboardEntry, error)
	// Entry returns a single player's entry, or model.ErrPlayerNotFound
	Entry(ctx context.Context, eventID model.EventID, playerID model.PlayerID) (*model.LeaderboardEntry, error)

	// UpdateStats runs fn against the current stats inside a transaction scoped to the
	// stats document. fn returns false to leave the document unchanged.
	UpdateStats(ctx context.Context, eventID model.EventID, fn func(stats *model.Stats) bool) (*model.Stats, error)
	// Stats returns the current stats, zero valued if none were written
	Stats(ctx context.Context, eventID model.EventID) (*model.Stats, error)

	// PushRecentScan adds a scan to the bounded activity feed, ignoring scans already present
	PushRecentScan(ctx context.Context, eventID model.EventID, scan model.RecentScan) error
	// RecentScans returns the feed newest first
	RecentScans(ctx context.Context, eventID model.EventID) ([]model.RecentScan, error)

	ReplaceTeamScores(ctx context.Context, eventID model.EventID, scores []model.TeamScore) error
	TeamScores(ctx context.Context, eventID model.EventID) ([]model.TeamScore, error)

	// ClearEvent removes every projection of the event
	ClearEvent(ctx context.Context, eventID model.EventID) error
}
