package model

import "time"

// PlayerID is the client-generated identifier of a participant within an event
type PlayerID string

// Player is one participant in one event. CurrentScore and ScansCount are
// cached projections of the player's valid scans.
type Player struct {
	ID           PlayerID
	EventID      EventID
	Name         string
	AvatarType   string
	AvatarValue  string
	TeamID       TeamID
	AssignedType CodeType // set once at registration, never changed
	RegisteredAt time.Time

	GameStartedAt *time.Time
	GameEndedAt   *time.Time
	LastScanAt    *time.Time

	CurrentScore int
	ScansCount   int
	IsFinished   bool
}

// Profile holds the player fields that may be edited after registration
type Profile struct {
	Name        string
	AvatarType  string
	AvatarValue string
}

// Profile returns the editable fields of the player
func (p *Player) Profile() Profile {
	return Profile{Name: p.Name, AvatarType: p.AvatarType, AvatarValue: p.AvatarValue}
}

// HasStarted reports whether the player has started their personal timer
func (p *Player) HasStarted() bool {
	return p.GameStartedAt != nil
}

// GameTime returns how long the player took, once finished
func (p *Player) GameTime() (time.Duration, bool) {
	if !p.IsFinished || p.GameStartedAt == nil || p.GameEndedAt == nil {
		return 0, false
	}
	return p.GameEndedAt.Sub(*p.GameStartedAt), true
}

// Expired reports whether the player's time limit has passed at now
func (p *Player) Expired(limit time.Duration, now time.Time) bool {
	if limit <= 0 || p.GameStartedAt == nil {
		return false
	}
	return now.Sub(*p.GameStartedAt) > limit
}

// FinishAt marks the player finished with the given end time
func (p *Player) FinishAt(end time.Time) {
	p.IsFinished = true
	p.GameEndedAt = timePtr(end)
}

// ApplyTotals sets the cached totals from the ledger and finishes the player
// once the completion target is reached
func (p *Player) ApplyTotals(score, count, target int, now time.Time) {
	p.CurrentScore = score
	p.ScansCount = count
	if !p.IsFinished && target > 0 && count >= target {
		p.FinishAt(now)
	}
}
