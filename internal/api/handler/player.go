package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/qhunt/internal/api/request"
	"github.com/mcoot/qhunt/internal/api/response"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/game"
	"github.com/mcoot/qhunt/internal/services/projector"
	"github.com/mcoot/qhunt/internal/services/registry"
)

// PlayerHandler handles the player-facing endpoints: register, start and scan
type PlayerHandler struct {
	registry       *registry.Service
	gameController *game.Controller
	projector      *projector.Projector
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(registry *registry.Service, gameController *game.Controller, projector *projector.Projector) *PlayerHandler {
	return &PlayerHandler{
		registry:       registry,
		gameController: gameController,
		projector:      projector,
	}
}

func playerID(r *http.Request) model.PlayerID {
	return model.PlayerID(mux.Vars(r)["player_id"])
}

// Register handles POST /api/v1/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.registry.Register(r.Context(), registry.RegisterInput{
		EventID:     model.EventID(req.EventID),
		PlayerID:    model.PlayerID(req.PlayerID),
		Name:        req.Name,
		AvatarType:  req.AvatarType,
		AvatarValue: req.AvatarValue,
		TeamID:      model.TeamID(req.TeamID),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.RegisterResponse{
		Success:      true,
		Player:       response.PlayerFromModel(result.Player),
		AssignedType: string(result.Player.AssignedType),
	})
}

// Scan handles POST /api/v1/scan
func (h *PlayerHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req request.ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.gameController.SubmitScan(r.Context(), game.ScanInput{
		EventID:   model.EventID(req.EventID),
		PlayerID:  model.PlayerID(req.PlayerID),
		CodeValue: req.CodeValue,
		Method:    model.ScanMethod(req.Method),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScanResponse{
		Success:        true,
		Scan:           response.ScanFromModel(result.Scan),
		NewScore:       result.NewScore,
		IsGameComplete: result.IsGameComplete,
		Hint:           &response.Hint{Remaining: result.Remaining, Message: result.Hint},
	})
}

// Start handles POST /api/v1/events/{event_id}/players/{player_id}/start
func (h *PlayerHandler) Start(w http.ResponseWriter, r *http.Request) {
	player, err := h.gameController.StartPlayer(r.Context(), eventID(r), playerID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Get handles GET /api/v1/events/{event_id}/players/{player_id}, including the projected rank
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	player, err := h.registry.GetPlayer(r.Context(), eventID(r), playerID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.PlayerFromModel(player)
	resp.Rank = h.projector.Rank(r.Context(), player.EventID, player.ID)
	response.JSON(w, http.StatusOK, resp)
}

// Scans handles GET /api/v1/events/{event_id}/players/{player_id}/scans
func (h *PlayerHandler) Scans(w http.ResponseWriter, r *http.Request) {
	scans, err := h.gameController.ListPlayerScans(r.Context(), eventID(r), playerID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScansFromModel(scans))
}
