package sse

import (
	"log/slog"
	"time"

	"github.com/mcoot/qhunt/internal/api/response"
	"github.com/mcoot/qhunt/internal/model"
)

// Broadcaster pushes projection changes to spectators of an event.
// Events without a hub have no spectators and are skipped.
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

func (b *Broadcaster) send(eventID model.EventID, eventName string, payload any) {
	hub := b.hubManager.GetHub(eventID)
	if hub == nil {
		return
	}
	msg, err := RenderEvent(eventName, payload)
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("event_id", string(eventID)),
			slog.String("sse_event", eventName),
			slog.Any("error", err))
		return
	}
	hub.Broadcast(msg)
}

// LeaderboardChanged sends the full ranked leaderboard
func (b *Broadcaster) LeaderboardChanged(eventID model.EventID, entries []model.LeaderboardEntry) {
	b.send(eventID, EventLeaderboard, response.Leaderboard{
		EventID: string(eventID),
		Entries: response.LeaderboardFromModel(entries),
	})
}

// StatsChanged sends the aggregate counters
func (b *Broadcaster) StatsChanged(eventID model.EventID, stats *model.Stats) {
	b.send(eventID, EventStats, response.StatsFromModel(stats))
}

// ScanAccepted sends one activity feed entry
func (b *Broadcaster) ScanAccepted(eventID model.EventID, scan model.RecentScan) {
	b.send(eventID, EventRecentScan, response.RecentScansFromModel([]model.RecentScan{scan})[0])
}

// TeamsChanged sends the team standings
func (b *Broadcaster) TeamsChanged(eventID model.EventID, scores []model.TeamScore) {
	b.send(eventID, EventTeams, response.TeamScoresFromModel(scores))
}

// PhaseChanged tells spectators the game moved to a new phase
func (b *Broadcaster) PhaseChanged(eventID model.EventID, phase model.Phase, at time.Time) {
	b.send(eventID, EventPhase, response.PhaseChange{Phase: string(phase), ChangedAt: at})
}

// EventReset tells spectators every player and scan was cleared
func (b *Broadcaster) EventReset(eventID model.EventID) {
	b.send(eventID, EventReset, map[string]string{"event_id": string(eventID)})
}
