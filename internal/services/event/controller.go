// Package event implements the operator side of an event: its game rules,
// code toggles and phase transitions.
package event

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mcoot/qhunt/internal/dependencies/clock"
	"github.com/mcoot/qhunt/internal/metrics"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/projector"
	"github.com/mcoot/qhunt/internal/storage"
)

// maxConfigAttempts bounds retries of a config write that lost a version race
const maxConfigAttempts = 5

// CreateInput describes a new event. An empty ID is replaced by a generated one.
type CreateInput struct {
	ID    model.EventID
	Title string
	Rules model.GameRules
}

// Controller manages event configuration and the phase state machine
type Controller struct {
	storage    storage.Storage
	dispatcher projector.Dispatcher
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewController creates a new event Controller
func NewController(
	storage storage.Storage,
	dispatcher projector.Dispatcher,
	clock clock.Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:    storage,
		dispatcher: dispatcher,
		clock:      clock,
		metrics:    m,
		logger:     logger.With(slog.String("component", "event")),
	}
}

// CreateEvent validates the rules and stores a new event in the registration phase
func (c *Controller) CreateEvent(ctx context.Context, in CreateInput) (*model.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, model.ErrMissingFields
	}
	in.Rules = withDefaults(in.Rules)
	if err := in.Rules.Validate(); err != nil {
		return nil, err
	}

	id := in.ID
	if id == "" {
		id = model.EventID(uuid.NewString())
	}

	now := c.clock.Now()
	event := &model.Event{
		ID:        id,
		Title:     title,
		Game:      model.NewGameConfig(in.Rules, now),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.storage.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	c.logger.Info("event created",
		slog.String("event_id", string(event.ID)),
		slog.String("mode", string(event.Game.Mode)),
		slog.Int("codes", len(event.Game.Codes)),
		slog.Int("teams", len(event.Game.Teams)),
	)

	return event, nil
}

// GetEvent retrieves an event with its current game config
func (c *Controller) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	return c.storage.GetEvent(ctx, id)
}

// ConfigureGame replaces the game rules. Rules are locked once the event leaves registration.
func (c *Controller) ConfigureGame(ctx context.Context, id model.EventID, rules model.GameRules) (*model.Event, error) {
	rules = withDefaults(rules)
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	event, err := c.updateConfig(ctx, id, func(cfg model.GameConfig) (model.GameConfig, error) {
		if cfg.Phase != model.PhaseRegistration {
			return cfg, model.ErrConfigLocked
		}
		cfg.GameRules = rules
		cfg.Version++
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("game configured",
		slog.String("event_id", string(id)),
		slog.Int64("version", event.Game.Version),
	)
	return event, nil
}

// SetCodeActive enables or disables a single code. Allowed in any phase.
func (c *Controller) SetCodeActive(ctx context.Context, id model.EventID, codeID model.CodeID, active bool) (*model.Event, error) {
	event, err := c.updateConfig(ctx, id, func(cfg model.GameConfig) (model.GameConfig, error) {
		return cfg.SetCodeActive(codeID, active)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("code toggled",
		slog.String("event_id", string(id)),
		slog.String("code_id", string(codeID)),
		slog.Bool("active", active),
	)
	return event, nil
}

// TransitionPhase moves the game one step forward. Returning to registration
// is only possible through ResetEvent.
func (c *Controller) TransitionPhase(ctx context.Context, id model.EventID, target model.Phase) (*model.Event, error) {
	if target == model.PhaseRegistration {
		return nil, model.ErrInvalidTransition
	}

	now := c.clock.Now()
	event, err := c.updateConfig(ctx, id, func(cfg model.GameConfig) (model.GameConfig, error) {
		return model.Transition(cfg, target, now)
	})
	if err != nil {
		return nil, err
	}

	c.metrics.PhaseTransition(string(target))
	c.logger.Info("phase changed",
		slog.String("event_id", string(id)),
		slog.String("phase", string(target)),
	)

	c.dispatcher.Dispatch(ctx, model.Update{
		Type:       model.UpdatePhaseChanged,
		EventID:    id,
		Phase:      target,
		OccurredAt: now,
	})
	return event, nil
}

// ResetEvent returns the event to registration and deletes its players and scans
func (c *Controller) ResetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	now := c.clock.Now()
	event, err := c.updateConfig(ctx, id, func(cfg model.GameConfig) (model.GameConfig, error) {
		return model.Transition(cfg, model.PhaseRegistration, now)
	})
	if err != nil {
		return nil, err
	}

	if err := c.storage.DeleteEventData(ctx, id); err != nil {
		c.logger.Error("failed to delete event data",
			slog.String("event_id", string(id)),
			slog.Any("error", err),
		)
		return nil, err
	}

	c.metrics.PhaseTransition(string(model.PhaseRegistration))
	c.logger.Info("event reset", slog.String("event_id", string(id)))

	c.dispatcher.Dispatch(ctx, model.Update{
		Type:       model.UpdateEventReset,
		EventID:    id,
		Phase:      model.PhaseRegistration,
		OccurredAt: now,
	})
	return event, nil
}

// updateConfig applies fn to the latest config and writes it back with a version
// check, re-reading and re-applying on a concurrent change.
func (c *Controller) updateConfig(ctx context.Context, id model.EventID, fn func(cfg model.GameConfig) (model.GameConfig, error)) (*model.Event, error) {
	var lastErr error
	for attempt := 0; attempt < maxConfigAttempts; attempt++ {
		event, err := c.storage.GetEvent(ctx, id)
		if err != nil {
			return nil, err
		}

		next, err := fn(event.Game)
		if err != nil {
			return nil, err
		}

		updated, err := c.storage.UpdateGameConfig(ctx, id, event.Game.Version, next, c.clock.Now())
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, model.ErrConfigConflict) {
			return nil, err
		}
		lastErr = err
		c.logger.Debug("config version conflict, retrying",
			slog.String("event_id", string(id)),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

func withDefaults(rules model.GameRules) model.GameRules {
	if rules.Mode == "" {
		rules.Mode = model.ModeIndividual
	}
	return rules
}
