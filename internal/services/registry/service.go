// Package registry registers players and hands out their anti-cheat hunt types.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/qhunt/internal/dependencies/clock"
	"github.com/mcoot/qhunt/internal/dependencies/random"
	"github.com/mcoot/qhunt/internal/metrics"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/projector"
	"github.com/mcoot/qhunt/internal/storage"
)

const (
	MinNameLength = 2
	MaxNameLength = 20
)

// RegisterInput is a registration request. PlayerID is generated by the client.
type RegisterInput struct {
	EventID     model.EventID
	PlayerID    model.PlayerID
	Name        string
	AvatarType  string
	AvatarValue string
	TeamID      model.TeamID
}

// RegisterResult is the stored player and what the call did to it
type RegisterResult struct {
	Player  *model.Player
	Created bool
	Updated bool
}

// Service manages player registration
type Service struct {
	storage    storage.Storage
	dispatcher projector.Dispatcher
	clock      clock.Clock
	random     random.Random
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger

	// assignMu serialises count-then-create so concurrent registrations
	// on this node see each other's type assignments
	assignMu sync.Mutex
}

// NewService creates a new player registry
func NewService(
	storage storage.Storage,
	dispatcher projector.Dispatcher,
	clock clock.Clock,
	random random.Random,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:    storage,
		dispatcher: dispatcher,
		clock:      clock,
		random:     random,
		metrics:    m,
		tracer:     otel.Tracer("github.com/mcoot/qhunt/internal/services/registry"),
		logger:     logger.With(slog.String("component", "registry")),
	}
}

// Register creates a player, or updates the profile of an existing one.
//
// New players are only accepted during registration. Re-registering an existing
// player never changes their type, team or score; a changed name or avatar is
// applied while profile updates are allowed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Register", trace.WithAttributes(
		attribute.String("event_id", string(in.EventID)),
		attribute.String("player_id", string(in.PlayerID)),
	))
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		s.metrics.Registration("rejected")
		return nil, err
	}

	event, err := s.storage.GetEvent(ctx, in.EventID)
	if err != nil {
		s.metrics.Registration("rejected")
		return nil, err
	}

	result, err := s.register(ctx, event, in)
	if err != nil {
		s.metrics.Registration("rejected")
		return nil, err
	}

	switch {
	case result.Created:
		s.metrics.Registration("created")
	case result.Updated:
		s.metrics.Registration("updated")
	default:
		s.metrics.Registration("unchanged")
	}
	return result, nil
}

func (s *Service) register(ctx context.Context, event *model.Event, in RegisterInput) (*RegisterResult, error) {
	existing, err := s.storage.GetPlayer(ctx, in.EventID, in.PlayerID)
	switch {
	case err == nil:
		return s.reregister(ctx, event, existing, in)
	case !errors.Is(err, model.ErrPlayerNotFound):
		return nil, err
	}

	result, err := s.create(ctx, event, in)
	if errors.Is(err, model.ErrPlayerExists) {
		// lost a race with a concurrent registration of the same id
		existing, err := s.storage.GetPlayer(ctx, in.EventID, in.PlayerID)
		if err != nil {
			return nil, err
		}
		return s.reregister(ctx, event, existing, in)
	}
	return result, err
}

func (s *Service) create(ctx context.Context, event *model.Event, in RegisterInput) (*RegisterResult, error) {
	cfg := event.Game
	if !cfg.Phase.AllowsNewPlayers() {
		return nil, model.ErrGameNotOpen
	}

	teamID := model.TeamID("")
	if cfg.Mode == model.ModeTeams {
		if in.TeamID == "" || !cfg.HasTeam(in.TeamID) {
			return nil, model.ErrInvalidTeam
		}
		teamID = in.TeamID
	}

	player := &model.Player{
		ID:           in.PlayerID,
		EventID:      in.EventID,
		Name:         in.Name,
		AvatarType:   in.AvatarType,
		AvatarValue:  in.AvatarValue,
		TeamID:       teamID,
		RegisteredAt: s.clock.Now(),
	}

	if cfg.EnableTypeBasedHunting {
		s.assignMu.Lock()
		defer s.assignMu.Unlock()

		players, err := s.storage.ListPlayers(ctx, in.EventID)
		if err != nil {
			return nil, err
		}
		player.AssignedType = AssignType(cfg.AvailableCodeTypes, players, s.random)
	}

	if err := s.storage.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("player registered",
		slog.String("event_id", string(in.EventID)),
		slog.String("player_id", string(player.ID)),
		slog.String("team_id", string(player.TeamID)),
		slog.String("assigned_type", string(player.AssignedType)),
	)

	s.dispatcher.Dispatch(ctx, model.Update{
		Type:       model.UpdatePlayerRegistered,
		EventID:    in.EventID,
		PlayerID:   player.ID,
		OccurredAt: player.RegisteredAt,
	})

	return &RegisterResult{Player: player, Created: true}, nil
}

func (s *Service) reregister(ctx context.Context, event *model.Event, existing *model.Player, in RegisterInput) (*RegisterResult, error) {
	profile := model.Profile{Name: in.Name, AvatarType: in.AvatarType, AvatarValue: in.AvatarValue}
	if existing.Profile() == profile {
		return &RegisterResult{Player: existing}, nil
	}

	if !event.Game.Phase.AllowsProfileUpdates() {
		return nil, model.ErrGameNotOpen
	}

	updated, err := s.storage.UpdatePlayerProfile(ctx, in.EventID, in.PlayerID, profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("player profile updated",
		slog.String("event_id", string(in.EventID)),
		slog.String("player_id", string(in.PlayerID)),
	)

	s.dispatcher.Dispatch(ctx, model.Update{
		Type:       model.UpdatePlayerUpdated,
		EventID:    in.EventID,
		PlayerID:   in.PlayerID,
		OccurredAt: s.clock.Now(),
	})

	return &RegisterResult{Player: updated, Updated: true}, nil
}

// GetPlayer retrieves a registered player
func (s *Service) GetPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, eventID, playerID)
}

func validateInput(in RegisterInput) error {
	if in.EventID == "" || in.PlayerID == "" || in.Name == "" {
		return model.ErrMissingFields
	}
	n := utf8.RuneCountInString(in.Name)
	if n < MinNameLength || n > MaxNameLength {
		return model.ErrNameInvalid
	}
	return nil
}
