package model

import (
	"fmt"
	"strings"
	"time"
)

// EventID identifies one hosted instance of the game
type EventID string

// GameMode selects individual or team play
type GameMode string

const (
	ModeIndividual GameMode = "individual"
	ModeTeams      GameMode = "teams"
)

// CodeType is the anti-cheat tag attached to codes and assigned to players
type CodeType string

// CodeID identifies a code within an event
type CodeID string

// TeamID identifies a team within an event
type TeamID string

// Team is a configured team
type Team struct {
	ID    TeamID
	Name  string
	Color string
}

// Code is a scannable code placed by the operator
type Code struct {
	ID     CodeID
	Value  string
	Type   CodeType
	Points int
	Active bool
}

// GameRules holds the operator-editable rules of a game
type GameRules struct {
	Mode                   GameMode
	GameDurationSeconds    int // 0 = unlimited
	TargetCodeCount        int // 0 = every active code
	EnableTypeBasedHunting bool
	AvailableCodeTypes     []CodeType
	Teams                  []Team
	Codes                  []Code
}

// GameConfig is the versioned game configuration nested under an event.
// Every mutation bumps Version; writes that depend on it are conditional on the version read.
type GameConfig struct {
	GameRules

	Version        int64
	Phase          Phase
	PhaseChangedAt time.Time
	GameStartedAt  *time.Time
	GameEndedAt    *time.Time
	LastResetAt    *time.Time
}

// Event is the parent content record that owns a game configuration
type Event struct {
	ID        EventID
	Title     string
	Game      GameConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGameConfig returns a registration-phase config for the given rules
func NewGameConfig(rules GameRules, now time.Time) GameConfig {
	if rules.Mode == "" {
		rules.Mode = ModeIndividual
	}
	return GameConfig{
		GameRules:      rules,
		Version:        1,
		Phase:          PhaseRegistration,
		PhaseChangedAt: now,
	}
}

// NormalizeCodeValue returns the comparison form of a code value
func NormalizeCodeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Validate checks the rules for internal consistency
func (r GameRules) Validate() error {
	switch r.Mode {
	case ModeIndividual, ModeTeams:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, r.Mode)
	}
	if r.GameDurationSeconds < 0 {
		return fmt.Errorf("%w: negative game duration", ErrInvalidConfig)
	}
	if r.TargetCodeCount < 0 {
		return fmt.Errorf("%w: negative target code count", ErrInvalidConfig)
	}

	types := make(map[CodeType]bool, len(r.AvailableCodeTypes))
	for _, t := range r.AvailableCodeTypes {
		if t == "" {
			return fmt.Errorf("%w: empty code type", ErrInvalidConfig)
		}
		types[t] = true
	}
	if r.EnableTypeBasedHunting && len(types) == 0 {
		return fmt.Errorf("%w: type based hunting needs at least one code type", ErrInvalidConfig)
	}

	teamIDs := make(map[TeamID]bool, len(r.Teams))
	for _, t := range r.Teams {
		if t.ID == "" {
			return fmt.Errorf("%w: team without id", ErrInvalidConfig)
		}
		if teamIDs[t.ID] {
			return fmt.Errorf("%w: duplicate team id %q", ErrInvalidConfig, t.ID)
		}
		teamIDs[t.ID] = true
	}
	if r.Mode == ModeTeams && len(r.Teams) == 0 {
		return fmt.Errorf("%w: team mode needs at least one team", ErrInvalidConfig)
	}

	codeIDs := make(map[CodeID]bool, len(r.Codes))
	values := make(map[string]bool, len(r.Codes))
	for _, c := range r.Codes {
		if c.ID == "" || NormalizeCodeValue(c.Value) == "" {
			return fmt.Errorf("%w: code needs an id and a value", ErrInvalidConfig)
		}
		if codeIDs[c.ID] {
			return fmt.Errorf("%w: duplicate code id %q", ErrInvalidConfig, c.ID)
		}
		codeIDs[c.ID] = true
		v := NormalizeCodeValue(c.Value)
		if values[v] {
			return fmt.Errorf("%w: duplicate code value %q", ErrInvalidConfig, c.Value)
		}
		values[v] = true
		if c.Points <= 0 {
			return fmt.Errorf("%w: code %q must be worth at least one point", ErrInvalidConfig, c.ID)
		}
		if r.EnableTypeBasedHunting && !types[c.Type] {
			return fmt.Errorf("%w: code %q has unknown type %q", ErrInvalidConfig, c.ID, c.Type)
		}
	}

	return nil
}

// Duration returns the per-player time limit, or 0 when unlimited
func (c GameConfig) Duration() time.Duration {
	return time.Duration(c.GameDurationSeconds) * time.Second
}

// FindActiveCode resolves a code value case-insensitively against the active codes
func (c GameConfig) FindActiveCode(value string) (Code, bool) {
	v := NormalizeCodeValue(value)
	for _, code := range c.Codes {
		if code.Active && NormalizeCodeValue(code.Value) == v {
			return code, true
		}
	}
	return Code{}, false
}

// ActiveCodeCount returns the number of active codes, optionally restricted to one type
func (c GameConfig) ActiveCodeCount(t CodeType) int {
	n := 0
	for _, code := range c.Codes {
		if !code.Active {
			continue
		}
		if t != "" && code.Type != t {
			continue
		}
		n++
	}
	return n
}

// CompletionTarget returns how many valid scans finish the game for a player
// with the given assigned type (empty when the player has none)
func (c GameConfig) CompletionTarget(assigned CodeType) int {
	if c.EnableTypeBasedHunting && assigned != "" {
		return c.ActiveCodeCount(assigned)
	}
	if c.TargetCodeCount > 0 {
		return c.TargetCodeCount
	}
	return c.ActiveCodeCount("")
}

// HasTeam reports whether id references a configured team
func (c GameConfig) HasTeam(id TeamID) bool {
	for _, t := range c.Teams {
		if t.ID == id {
			return true
		}
	}
	return false
}

// SetCodeActive returns a copy of the config with the code's active flag changed
func (c GameConfig) SetCodeActive(id CodeID, active bool) (GameConfig, error) {
	next := c
	next.Codes = make([]Code, len(c.Codes))
	copy(next.Codes, c.Codes)
	for i := range next.Codes {
		if next.Codes[i].ID == id {
			next.Codes[i].Active = active
			next.Version = c.Version + 1
			return next, nil
		}
	}
	return c, ErrCodeNotFound
}
