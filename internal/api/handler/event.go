package handler

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/qhunt/internal/api/request"
	"github.com/mcoot/qhunt/internal/api/response"
	"github.com/mcoot/qhunt/internal/export"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/event"
	"github.com/mcoot/qhunt/internal/services/teams"
)

// EventHandler handles operator endpoints for an event
type EventHandler struct {
	eventController *event.Controller
	teamService     *teams.Service
	exportService   *export.Service
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventController *event.Controller, teamService *teams.Service, exportService *export.Service) *EventHandler {
	return &EventHandler{
		eventController: eventController,
		teamService:     teamService,
		exportService:   exportService,
	}
}

func eventID(r *http.Request) model.EventID {
	return model.EventID(mux.Vars(r)["event_id"])
}

// Create handles POST /api/v1/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	ev, err := h.eventController.CreateEvent(r.Context(), event.CreateInput{
		ID:    model.EventID(req.ID),
		Title: req.Title,
		Rules: req.Game.ToModel(),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.EventFromModel(ev))
}

// Get handles GET /api/v1/events/{event_id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	ev, err := h.eventController.GetEvent(r.Context(), eventID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EventFromModel(ev))
}

// Configure handles PUT /api/v1/events/{event_id}/config
func (h *EventHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req request.GameRules
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	ev, err := h.eventController.ConfigureGame(r.Context(), eventID(r), req.ToModel())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EventFromModel(ev))
}

// Transition handles POST /api/v1/events/{event_id}/phase
func (h *EventHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req request.TransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Phase == "" {
		WriteError(w, NewInvalidRequestError("phase is required"))
		return
	}

	ev, err := h.eventController.TransitionPhase(r.Context(), eventID(r), model.Phase(req.Phase))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EventFromModel(ev))
}

// Reset handles POST /api/v1/events/{event_id}/reset
func (h *EventHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ev, err := h.eventController.ResetEvent(r.Context(), eventID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EventFromModel(ev))
}

// SetCodeActive handles PATCH /api/v1/events/{event_id}/codes/{code_id}
func (h *EventHandler) SetCodeActive(w http.ResponseWriter, r *http.Request) {
	var req request.SetCodeActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Active == nil {
		WriteError(w, NewInvalidRequestError("active is required"))
		return
	}

	codeID := model.CodeID(mux.Vars(r)["code_id"])
	ev, err := h.eventController.SetCodeActive(r.Context(), eventID(r), codeID, *req.Active)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EventFromModel(ev))
}

// Teams handles GET /api/v1/events/{event_id}/teams
func (h *EventHandler) Teams(w http.ResponseWriter, r *http.Request) {
	scores, err := h.teamService.Recompute(r.Context(), eventID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TeamScoresFromModel(scores))
}

// Export handles GET /api/v1/events/{event_id}/results.xlsx
func (h *EventHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := eventID(r)

	// buffer so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.exportService.WriteResults(r.Context(), id, &buf); err != nil {
		WriteError(w, err)
		return
	}

	response.Attachment(w, export.ContentType, string(id)+"-results.xlsx", buf.Bytes())
}
