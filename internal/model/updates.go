package model

import "time"

// UpdateType identifies a change that the projection must catch up with
type UpdateType string

const (
	UpdatePlayerRegistered UpdateType = "player_registered"
	UpdatePlayerUpdated    UpdateType = "player_updated"
	UpdatePlayerStarted    UpdateType = "player_started"
	UpdateScanAccepted     UpdateType = "scan_accepted"
	UpdatePlayerFinished   UpdateType = "player_finished"
	UpdatePhaseChanged     UpdateType = "phase_changed"
	UpdateEventReset       UpdateType = "event_reset"
)

// Update describes a committed change to authoritative state.
// Projections are rebuilt from storage, so an update only needs to say what happened.
type Update struct {
	Type       UpdateType
	EventID    EventID
	PlayerID   PlayerID
	Scan       *Scan
	Phase      Phase
	OccurredAt time.Time
}
