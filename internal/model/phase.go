package model

import "time"

// Phase is the lifecycle state of an event's game
type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhaseCountdown    Phase = "countdown"
	PhasePlaying      Phase = "playing"
	PhaseFinished     Phase = "finished"
	PhaseResults      Phase = "results"
)

// nextPhase holds the only forward edge out of each phase
var nextPhase = map[Phase]Phase{
	PhaseRegistration: PhaseCountdown,
	PhaseCountdown:    PhasePlaying,
	PhasePlaying:      PhaseFinished,
	PhaseFinished:     PhaseResults,
}

// Valid reports whether p is a known phase
func (p Phase) Valid() bool {
	switch p {
	case PhaseRegistration, PhaseCountdown, PhasePlaying, PhaseFinished, PhaseResults:
		return true
	}
	return false
}

// AllowsScanning reports whether scans are accepted in this phase.
// Registration is included so late joiners can pre-scan before the host starts play.
func (p Phase) AllowsScanning() bool {
	return p == PhasePlaying || p == PhaseRegistration
}

// AllowsNewPlayers reports whether new players may register
func (p Phase) AllowsNewPlayers() bool {
	return p == PhaseRegistration
}

// AllowsProfileUpdates reports whether existing players may edit their profile
func (p Phase) AllowsProfileUpdates() bool {
	return p == PhaseRegistration || p == PhasePlaying
}

// AllowsPlayerStart reports whether a player may start their personal timer
func (p Phase) AllowsPlayerStart() bool {
	return p.AllowsScanning()
}

// Transition applies a phase change to cfg and returns the new configuration.
// Only the single forward edge of each phase is allowed, plus the reset edge
// from any phase back to registration. The returned config has its version bumped.
func Transition(cfg GameConfig, target Phase, now time.Time) (GameConfig, error) {
	if !target.Valid() {
		return cfg, ErrInvalidTransition
	}

	next := cfg
	next.Version = cfg.Version + 1
	next.PhaseChangedAt = now

	if target == PhaseRegistration {
		next.Phase = PhaseRegistration
		next.LastResetAt = timePtr(now)
		next.GameStartedAt = nil
		next.GameEndedAt = nil
		return next, nil
	}

	if nextPhase[cfg.Phase] != target {
		return cfg, ErrInvalidTransition
	}
	next.Phase = target

	switch target {
	case PhasePlaying:
		next.GameStartedAt = timePtr(now)
	case PhaseFinished, PhaseResults:
		if next.GameEndedAt == nil {
			next.GameEndedAt = timePtr(now)
		}
	}

	return next, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
