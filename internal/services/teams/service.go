// Package teams rolls player scores up into team standings.
package teams

import (
	"context"
	"log/slog"

	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/scoring"
	"github.com/mcoot/qhunt/internal/storage"
)

// Service recomputes team scores on demand. Team scores have no state of
// their own: they are always derived from the players' cached totals.
type Service struct {
	storage  storage.Storage
	realtime storage.Realtime
	logger   *slog.Logger
}

// NewService creates a new team aggregator
func NewService(storage storage.Storage, realtime storage.Realtime, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		realtime: realtime,
		logger:   logger.With(slog.String("component", "teams")),
	}
}

// Recompute aggregates the event's players into ranked team scores.
// The result is written to the realtime store on a best-effort basis.
func (s *Service) Recompute(ctx context.Context, eventID model.EventID) ([]model.TeamScore, error) {
	event, err := s.storage.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	players, err := s.storage.ListPlayers(ctx, eventID)
	if err != nil {
		return nil, err
	}

	scores := scoring.AggregateTeams(event.Game.Teams, players)

	if err := s.realtime.ReplaceTeamScores(ctx, eventID, scores); err != nil {
		s.logger.Warn("failed to store team scores",
			slog.String("event_id", string(eventID)),
			slog.Any("error", err),
		)
	}
	return scores, nil
}
