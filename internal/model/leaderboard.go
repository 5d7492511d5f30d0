package model

import "time"

// LeaderboardEntry is one row of the realtime leaderboard projection
type LeaderboardEntry struct {
	PlayerID    PlayerID
	Name        string
	AvatarType  string
	AvatarValue string
	TeamID      TeamID
	Score       int
	ScansCount  int
	IsFinished  bool
	GameTime    *time.Duration
	Rank        int
}

// NewLeaderboardEntry projects a player into an unranked entry
func NewLeaderboardEntry(p *Player) LeaderboardEntry {
	e := LeaderboardEntry{
		PlayerID:    p.ID,
		Name:        p.Name,
		AvatarType:  p.AvatarType,
		AvatarValue: p.AvatarValue,
		TeamID:      p.TeamID,
		Score:       p.CurrentScore,
		ScansCount:  p.ScansCount,
		IsFinished:  p.IsFinished,
	}
	if d, ok := p.GameTime(); ok {
		e.GameTime = &d
	}
	return e
}

// Stats are the aggregate counters shown on spectator displays
type Stats struct {
	PlayersCount    int
	PlayersPlaying  int
	PlayersFinished int
	TotalScans      int
	TopScore        int
	AsOf            time.Time
}

// RecentScan is an entry in the bounded recent activity feed
type RecentScan struct {
	ScanID      ScanID
	PlayerID    PlayerID
	PlayerName  string
	AvatarValue string
	CodeType    CodeType
	Points      int
	ScannedAt   time.Time
}

// RecentScansLimit bounds the recent activity feed
const RecentScansLimit = 20

// TeamScore is the derived total for one team
type TeamScore struct {
	TeamID  TeamID
	Name    string
	Color   string
	Score   int
	Players int
	Rank    int
}
