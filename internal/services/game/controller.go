// Package game validates and records scans and runs each player's personal timer.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/qhunt/internal/dependencies/clock"
	"github.com/mcoot/qhunt/internal/metrics"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/projector"
	"github.com/mcoot/qhunt/internal/storage"
)

// maxCommitAttempts bounds re-validation when the game config changes under a scan
const maxCommitAttempts = 5

var scanNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("qhunt:scan"))

// ScanInput is a scan attempt by a player
type ScanInput struct {
	EventID   model.EventID
	PlayerID  model.PlayerID
	CodeValue string
	Method    model.ScanMethod
}

// ScanResult describes an accepted scan
type ScanResult struct {
	Scan           *model.Scan
	Player         *model.Player
	NewScore       int
	IsGameComplete bool
	Remaining      int
	Hint           string
}

// Controller runs the scan validator and the personal timers
type Controller struct {
	storage    storage.Storage
	dispatcher projector.Dispatcher
	clock      clock.Clock
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewController creates a new game Controller
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
		tracer:     otel.Tracer("github.com/mcoot/qhunt/internal/services/game"),
		logger:     logger.With(slog.String("component", "game")),
	}
}

// StartPlayer starts the player's personal timer. Starting again is a no-op.
func (c *Controller) StartPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID) (*model.Player, error) {
	event, err := c.storage.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Game.Phase.AllowsPlayerStart() {
		return nil, model.ErrGameNotActive
	}

	player, err := c.storage.GetPlayer(ctx, eventID, playerID)
	if err != nil {
		return nil, err
	}
	if player.HasStarted() {
		return player, nil
	}

	now := c.clock.Now()
	player, err = c.storage.StartPlayer(ctx, eventID, playerID, now)
	if err != nil {
		return nil, err
	}

	c.logger.Info("player started",
		slog.String("event_id", string(eventID)),
		slog.String("player_id", string(playerID)),
	)

	c.dispatcher.Dispatch(ctx, model.Update{
		Type:       model.UpdatePlayerStarted,
		EventID:    eventID,
		PlayerID:   playerID,
		OccurredAt: now,
	})
	return player, nil
}

// SubmitScan validates a scan attempt and records it in the ledger.
//
// Checks run in order and the first failure is returned: phase, registration,
// personal timer started, not finished, time limit, code lookup, hunt type,
// duplicate. A wrong type is returned as a *model.WrongTypeError. The config
// version read at the start is re-checked by the commit, and the whole
// validation re-runs if the config changed in between.
func (c *Controller) SubmitScan(ctx context.Context, in ScanInput) (result *ScanResult, err error) {
	ctx, span := c.tracer.Start(ctx, "game.SubmitScan", trace.WithAttributes(
		attribute.String("event_id", string(in.EventID)),
		attribute.String("player_id", string(in.PlayerID)),
	))
	defer func() {
		c.metrics.ScanResult(Outcome(err))
		if err != nil {
			span.SetStatus(codes.Error, Outcome(err))
		}
		span.End()
	}()

	in.CodeValue = strings.TrimSpace(in.CodeValue)
	if in.EventID == "" || in.PlayerID == "" || in.CodeValue == "" {
		return nil, model.ErrMissingFields
	}
	if in.Method == "" {
		in.Method = model.MethodQR
	}
	if !in.Method.Valid() {
		return nil, model.ErrInvalidMethod
	}

	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		result, err = c.attempt(ctx, in)
		if !errors.Is(err, model.ErrConfigConflict) {
			return result, err
		}
		c.logger.Debug("config changed during scan, revalidating",
			slog.String("event_id", string(in.EventID)),
			slog.String("player_id", string(in.PlayerID)),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, err
}

func (c *Controller) attempt(ctx context.Context, in ScanInput) (*ScanResult, error) {
	event, err := c.storage.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	cfg := event.Game

	if !cfg.Phase.AllowsScanning() {
		return nil, model.ErrGameNotActive
	}

	player, err := c.storage.GetPlayer(ctx, in.EventID, in.PlayerID)
	if err != nil {
		return nil, err
	}
	if !player.HasStarted() {
		return nil, model.ErrPlayerNotStarted
	}
	if player.IsFinished {
		return nil, model.ErrPlayerFinished
	}

	now := c.clock.Now()
	if limit := cfg.Duration(); player.Expired(limit, now) {
		c.expire(ctx, player, player.GameStartedAt.Add(limit))
		return nil, model.ErrTimeExpired
	}

	code, ok := cfg.FindActiveCode(in.CodeValue)
	if !ok {
		return nil, model.ErrCodeNotFound
	}

	if cfg.EnableTypeBasedHunting && player.AssignedType != "" && code.Type != player.AssignedType {
		return nil, &model.WrongTypeError{Required: player.AssignedType, Got: code.Type}
	}

	since := *player.GameStartedAt
	if player.LastScanAt != nil {
		since = *player.LastScanAt
	}

	scan := model.Scan{
		ID:           scanID(in.EventID, in.PlayerID, code.ID, now),
		EventID:      in.EventID,
		PlayerID:     in.PlayerID,
		CodeID:       code.ID,
		CodeValue:    model.NormalizeCodeValue(code.Value),
		CodeType:     code.Type,
		Points:       code.Points,
		IsValid:      true,
		Method:       in.Method,
		ScannedAt:    now,
		ScanDuration: max(now.Sub(since), 0),
	}
	target := cfg.CompletionTarget(player.AssignedType)

	updated, err := c.storage.CommitScan(ctx, model.ScanCommit{
		Scan:             scan,
		ConfigVersion:    cfg.Version,
		CompletionTarget: target,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("scan accepted",
		slog.String("event_id", string(in.EventID)),
		slog.String("player_id", string(in.PlayerID)),
		slog.String("code_id", string(code.ID)),
		slog.Int("points", code.Points),
		slog.Int("score", updated.CurrentScore),
	)

	c.dispatcher.Dispatch(ctx, model.Update{
		Type:       model.UpdateScanAccepted,
		EventID:    in.EventID,
		PlayerID:   in.PlayerID,
		Scan:       &scan,
		OccurredAt: now,
	})
	if updated.IsFinished {
		c.dispatcher.Dispatch(ctx, model.Update{
			Type:       model.UpdatePlayerFinished,
			EventID:    in.EventID,
			PlayerID:   in.PlayerID,
			OccurredAt: now,
		})
	}

	huntType := model.CodeType("")
	if cfg.EnableTypeBasedHunting {
		huntType = player.AssignedType
	}
	remaining := 0
	if target > 0 {
		remaining = max(target-updated.ScansCount, 0)
	}
	return &ScanResult{
		Scan:           &scan,
		Player:         updated,
		NewScore:       updated.CurrentScore,
		IsGameComplete: updated.IsFinished,
		Remaining:      remaining,
		Hint:           Hint(remaining, updated.IsFinished, huntType),
	}, nil
}

// expire finishes a player whose time ran out, capped at the time limit
func (c *Controller) expire(ctx context.Context, player *model.Player, end time.Time) {
	if _, err := c.storage.FinishPlayer(ctx, player.EventID, player.ID, end); err != nil {
		c.logger.Error("failed to finish expired player",
			slog.String("event_id", string(player.EventID)),
			slog.String("player_id", string(player.ID)),
			slog.Any("error", err),
		)
		return
	}

	c.logger.Info("player time expired",
		slog.String("event_id", string(player.EventID)),
		slog.String("player_id", string(player.ID)),
	)

	c.dispatcher.Dispatch(ctx, model.Update{
		Type:       model.UpdatePlayerFinished,
		EventID:    player.EventID,
		PlayerID:   player.ID,
		OccurredAt: end,
	})
}

// ListPlayerScans returns a registered player's scans in the order they were made
func (c *Controller) ListPlayerScans(ctx context.Context, eventID model.EventID, playerID model.PlayerID) ([]*model.Scan, error) {
	if _, err := c.storage.GetPlayer(ctx, eventID, playerID); err != nil {
		return nil, err
	}
	return c.storage.ListScans(ctx, eventID, playerID)
}

func scanID(eventID model.EventID, playerID model.PlayerID, codeID model.CodeID, at time.Time) model.ScanID {
	name := fmt.Sprintf("%s|%s|%s|%d", eventID, playerID, codeID, at.UnixNano())
	return model.ScanID(uuid.NewSHA1(scanNamespace, []byte(name)).String())
}
