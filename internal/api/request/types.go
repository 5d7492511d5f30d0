package request

import (
	"github.com/mcoot/qhunt/internal/model"
)

// Team is a team definition in a game config
type Team struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Code is a findable code in a game config
type Code struct {
	ID     string `json:"id" yaml:"id"`
	Value  string `json:"value" yaml:"value"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Points int    `json:"points" yaml:"points"`
	Active *bool  `json:"active,omitempty" yaml:"active,omitempty"`
}

// GameRules is the operator-editable part of a game config
type GameRules struct {
	Mode                   string   `json:"mode" yaml:"mode"`
	GameDurationSeconds    int      `json:"game_duration_seconds" yaml:"game_duration_seconds"`
	TargetCodeCount        int      `json:"target_code_count" yaml:"target_code_count"`
	EnableTypeBasedHunting bool     `json:"enable_type_based_hunting" yaml:"enable_type_based_hunting"`
	AvailableCodeTypes     []string `json:"available_code_types" yaml:"available_code_types"`
	Teams                  []Team   `json:"teams" yaml:"teams"`
	Codes                  []Code   `json:"codes" yaml:"codes"`
}

// ToModel converts the rules. Codes default to active.
func (r GameRules) ToModel() model.GameRules {
	rules := model.GameRules{
		Mode:                   model.GameMode(r.Mode),
		GameDurationSeconds:    r.GameDurationSeconds,
		TargetCodeCount:        r.TargetCodeCount,
		EnableTypeBasedHunting: r.EnableTypeBasedHunting,
	}
	for _, t := range r.AvailableCodeTypes {
		rules.AvailableCodeTypes = append(rules.AvailableCodeTypes, model.CodeType(t))
	}
	for _, t := range r.Teams {
		rules.Teams = append(rules.Teams, model.Team{ID: model.TeamID(t.ID), Name: t.Name, Color: t.Color})
	}
	for _, c := range r.Codes {
		active := true
		if c.Active != nil {
			active = *c.Active
		}
		rules.Codes = append(rules.Codes, model.Code{
			ID:     model.CodeID(c.ID),
			Value:  c.Value,
			Type:   model.CodeType(c.Type),
			Points: c.Points,
			Active: active,
		})
	}
	return rules
}

// CreateEventRequest is the request body for creating an event
type CreateEventRequest struct {
	ID    string    `json:"id,omitempty"`
	Title string    `json:"title"`
	Game  GameRules `json:"game"`
}

// TransitionRequest is the request body for changing phase
type TransitionRequest struct {
	Phase string `json:"phase"`
}

// SetCodeActiveRequest is the request body for toggling a code
type SetCodeActiveRequest struct {
	Active *bool `json:"active"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	EventID     string `json:"event_id"`
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	AvatarType  string `json:"avatar_type"`
	AvatarValue string `json:"avatar_value"`
	TeamID      string `json:"team_id,omitempty"`
}

// ScanRequest is the request body for submitting a scan
type ScanRequest struct {
	EventID   string `json:"event_id"`
	PlayerID  string `json:"player_id"`
	CodeValue string `json:"code_value"`
	Method    string `json:"method,omitempty"`
}
