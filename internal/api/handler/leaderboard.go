package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/qhunt/internal/api/response"
	"github.com/mcoot/qhunt/internal/services/event"
	"github.com/mcoot/qhunt/internal/services/projector"
	"github.com/mcoot/qhunt/internal/web/sse"
)

// LeaderboardHandler serves the realtime projection to spectator displays
type LeaderboardHandler struct {
	eventController *event.Controller
	projector       *projector.Projector
	hubManager      *sse.HubManager
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(eventController *event.Controller, projector *projector.Projector, hubManager *sse.HubManager) *LeaderboardHandler {
	return &LeaderboardHandler{
		eventController: eventController,
		projector:       projector,
		hubManager:      hubManager,
	}
}

// Leaderboard handles GET /api/v1/events/{event_id}/leaderboard
func (h *LeaderboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	id := eventID(r)
	if _, err := h.eventController.GetEvent(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.projector.Leaderboard(r.Context(), id, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Leaderboard{
		EventID: string(id),
		Entries: response.LeaderboardFromModel(entries),
	})
}

// Stats handles GET /api/v1/events/{event_id}/stats
func (h *LeaderboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id := eventID(r)
	if _, err := h.eventController.GetEvent(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	stats, err := h.projector.Stats(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StatsFromModel(stats))
}

// Recent handles GET /api/v1/events/{event_id}/recent
func (h *LeaderboardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	id := eventID(r)
	if _, err := h.eventController.GetEvent(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	scans, err := h.projector.RecentScans(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RecentScansFromModel(scans))
}

// Stream handles GET /api/v1/events/{event_id}/stream.
// The current leaderboard is sent as soon as the stream opens.
func (h *LeaderboardHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := eventID(r)
	if _, err := h.eventController.GetEvent(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.projector.Leaderboard(r.Context(), id, 0)
	if err != nil {
		WriteError(w, err)
		return
	}
	initial, err := sse.RenderEvent(sse.EventLeaderboard, response.Leaderboard{
		EventID: string(id),
		Entries: response.LeaderboardFromModel(entries),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	hub := h.hubManager.GetOrCreateHub(id)
	sse.ServeSSE(w, r, hub, r.RemoteAddr, initial)
}
