// Package projector keeps the realtime projection in step with the ledger.
package projector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/qhunt/internal/dependencies/clock"
	"github.com/mcoot/qhunt/internal/metrics"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/scoring"
	"github.com/mcoot/qhunt/internal/services/teams"
	"github.com/mcoot/qhunt/internal/storage"
)

// Notifier receives projection changes for live spectators
type Notifier interface {
	LeaderboardChanged(eventID model.EventID, entries []model.LeaderboardEntry)
	StatsChanged(eventID model.EventID, stats *model.Stats)
	ScanAccepted(eventID model.EventID, scan model.RecentScan)
	TeamsChanged(eventID model.EventID, scores []model.TeamScore)
	PhaseChanged(eventID model.EventID, phase model.Phase, at time.Time)
	EventReset(eventID model.EventID)
}

// Projector rebuilds the leaderboard, stats and activity feed from the ledger.
// Apply is idempotent: applying the same update twice leaves the projection unchanged.
type Projector struct {
	storage  storage.Storage
	realtime storage.Realtime
	teams    *teams.Service
	notifier Notifier
	clock    clock.Clock
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New creates a new Projector. notifier may be nil.
func New(
	storage storage.Storage,
	realtime storage.Realtime,
	teams *teams.Service,
	notifier Notifier,
	clock clock.Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Projector {
	return &Projector{
		storage:  storage,
		realtime: realtime,
		teams:    teams,
		notifier: notifier,
		clock:    clock,
		metrics:  m,
		tracer:   otel.Tracer("github.com/mcoot/qhunt/internal/services/projector"),
		logger:   logger.With(slog.String("component", "projector")),
	}
}

// Apply brings the projection up to date with an update
func (p *Projector) Apply(ctx context.Context, update model.Update) (err error) {
	ctx, span := p.tracer.Start(ctx, "projector.Apply", trace.WithAttributes(
		attribute.String("event_id", string(update.EventID)),
		attribute.String("update", string(update.Type)),
	))
	start := time.Now()
	defer func() {
		p.metrics.ObserveProjection(string(update.Type), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if update.Type == model.UpdateEventReset {
		if err := p.realtime.ClearEvent(ctx, update.EventID); err != nil {
			return p.fail("clear", update, err)
		}
		p.notify(func(n Notifier) { n.EventReset(update.EventID) })
		return nil
	}

	asOf := p.clock.Now()
	players, err := p.storage.ListPlayers(ctx, update.EventID)
	if err != nil {
		return p.fail("players", update, err)
	}

	var errs []error
	if err := p.rebuildLeaderboard(ctx, update.EventID, players); err != nil {
		errs = append(errs, p.fail("leaderboard", update, err))
	}
	if err := p.refreshStats(ctx, update.EventID, players, asOf); err != nil {
		errs = append(errs, p.fail("stats", update, err))
	}

	switch update.Type {
	case model.UpdateScanAccepted:
		if err := p.pushRecent(ctx, update, players); err != nil {
			errs = append(errs, p.fail("recent", update, err))
		}
	case model.UpdatePhaseChanged:
		p.notify(func(n Notifier) { n.PhaseChanged(update.EventID, update.Phase, update.OccurredAt) })
		if update.Phase == model.PhaseFinished {
			if err := p.refreshTeams(ctx, update.EventID); err != nil {
				errs = append(errs, p.fail("teams", update, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (p *Projector) rebuildLeaderboard(ctx context.Context, eventID model.EventID, players []*model.Player) error {
	entries := scoring.RankLeaderboard(players)
	if err := p.realtime.ReplaceLeaderboard(ctx, eventID, entries); err != nil {
		return err
	}
	p.notify(func(n Notifier) { n.LeaderboardChanged(eventID, entries) })
	return nil
}

// refreshStats writes the snapshot unless a newer one already landed
func (p *Projector) refreshStats(ctx context.Context, eventID model.EventID, players []*model.Player, asOf time.Time) error {
	snapshot := scoring.ComputeStats(players, asOf)
	stats, err := p.realtime.UpdateStats(ctx, eventID, func(current *model.Stats) bool {
		if current.AsOf.After(snapshot.AsOf) {
			return false
		}
		*current = snapshot
		return true
	})
	if err != nil {
		return err
	}
	p.notify(func(n Notifier) { n.StatsChanged(eventID, stats) })
	return nil
}

func (p *Projector) pushRecent(ctx context.Context, update model.Update, players []*model.Player) error {
	if update.Scan == nil {
		return nil
	}
	recent := model.RecentScan{
		ScanID:    update.Scan.ID,
		PlayerID:  update.Scan.PlayerID,
		CodeType:  update.Scan.CodeType,
		Points:    update.Scan.Points,
		ScannedAt: update.Scan.ScannedAt,
	}
	for _, pl := range players {
		if pl.ID == update.Scan.PlayerID {
			recent.PlayerName = pl.Name
			recent.AvatarValue = pl.AvatarValue
			break
		}
	}
	if err := p.realtime.PushRecentScan(ctx, update.EventID, recent); err != nil {
		return err
	}
	p.notify(func(n Notifier) { n.ScanAccepted(update.EventID, recent) })
	return nil
}

func (p *Projector) refreshTeams(ctx context.Context, eventID model.EventID) error {
	if p.teams == nil {
		return nil
	}
	scores, err := p.teams.Recompute(ctx, eventID)
	if err != nil {
		return err
	}
	if len(scores) > 0 {
		p.notify(func(n Notifier) { n.TeamsChanged(eventID, scores) })
	}
	return nil
}

func (p *Projector) notify(fn func(n Notifier)) {
	if p.notifier != nil {
		fn(p.notifier)
	}
}

func (p *Projector) fail(stage string, update model.Update, err error) error {
	p.metrics.ProjectionFailure(stage)
	p.logger.Warn("projection stage failed",
		slog.String("stage", stage),
		slog.String("event_id", string(update.EventID)),
		slog.String("update", string(update.Type)),
		slog.Any("error", err),
	)
	return err
}

// Leaderboard returns the projected leaderboard, limited to the top n when n > 0
func (p *Projector) Leaderboard(ctx context.Context, eventID model.EventID, n int) ([]model.LeaderboardEntry, error) {
	if n > 0 {
		return p.realtime.Top(ctx, eventID, n)
	}
	return p.realtime.Leaderboard(ctx, eventID)
}

// Rank returns a player's projected leaderboard position, or 0 when the
// player is not on the board yet or the projection cannot be read
func (p *Projector) Rank(ctx context.Context, eventID model.EventID, playerID model.PlayerID) int {
	entry, err := p.realtime.Entry(ctx, eventID, playerID)
	if err != nil {
		if !errors.Is(err, model.ErrPlayerNotFound) {
			p.logger.Warn("failed to read leaderboard entry",
				slog.String("event_id", string(eventID)),
				slog.String("player_id", string(playerID)),
				slog.Any("error", err),
			)
		}
		return 0
	}
	return entry.Rank
}

// Stats returns the projected aggregate counters
func (p *Projector) Stats(ctx context.Context, eventID model.EventID) (*model.Stats, error) {
	return p.realtime.Stats(ctx, eventID)
}

// RecentScans returns the activity feed, newest first
func (p *Projector) RecentScans(ctx context.Context, eventID model.EventID) ([]model.RecentScan, error) {
	return p.realtime.RecentScans(ctx, eventID)
}
