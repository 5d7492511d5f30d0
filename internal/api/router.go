package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/qhunt/internal/api/handler"
	"github.com/mcoot/qhunt/internal/api/middleware"
	"github.com/mcoot/qhunt/internal/api/response"
	"github.com/mcoot/qhunt/internal/export"
	"github.com/mcoot/qhunt/internal/metrics"
	"github.com/mcoot/qhunt/internal/services/event"
	"github.com/mcoot/qhunt/internal/services/game"
	"github.com/mcoot/qhunt/internal/services/projector"
	"github.com/mcoot/qhunt/internal/services/registry"
	"github.com/mcoot/qhunt/internal/services/teams"
	"github.com/mcoot/qhunt/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	EventController *event.Controller
	GameController  *game.Controller
	Registry        *registry.Service
	Projector       *projector.Projector
	TeamService     *teams.Service
	ExportService   *export.Service
	HubManager      *sse.HubManager
	Metrics         *metrics.Metrics
	// RateLimiter guards the player-facing routes. Nil disables limiting.
	RateLimiter *middleware.IPRateLimiter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	eventHandler := handler.NewEventHandler(cfg.EventController, cfg.TeamService, cfg.ExportService)
	playerHandler := handler.NewPlayerHandler(cfg.Registry, cfg.GameController, cfg.Projector)
	leaderboardHandler := handler.NewLeaderboardHandler(cfg.EventController, cfg.Projector, cfg.HubManager)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Player routes, rate limited per client address
	limit := middleware.RateLimit(cfg.RateLimiter)
	api.Handle("/register", limit(http.HandlerFunc(playerHandler.Register))).Methods(http.MethodPost)
	api.Handle("/scan", limit(http.HandlerFunc(playerHandler.Scan))).Methods(http.MethodPost)
	api.Handle("/events/{event_id}/players/{player_id}/start", limit(http.HandlerFunc(playerHandler.Start))).Methods(http.MethodPost)

	// Event routes
	api.HandleFunc("/events", eventHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/events/{event_id}", eventHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/events/{event_id}/config", eventHandler.Configure).Methods(http.MethodPut)
	api.HandleFunc("/events/{event_id}/phase", eventHandler.Transition).Methods(http.MethodPost)
	api.HandleFunc("/events/{event_id}/reset", eventHandler.Reset).Methods(http.MethodPost)
	api.HandleFunc("/events/{event_id}/codes/{code_id}", eventHandler.SetCodeActive).Methods(http.MethodPatch)
	api.HandleFunc("/events/{event_id}/teams", eventHandler.Teams).Methods(http.MethodGet)
	api.HandleFunc("/events/{event_id}/results.xlsx", eventHandler.Export).Methods(http.MethodGet)

	api.HandleFunc("/events/{event_id}/players/{player_id}", playerHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/events/{event_id}/players/{player_id}/scans", playerHandler.Scans).Methods(http.MethodGet)

	// Spectator routes
	api.HandleFunc("/events/{event_id}/leaderboard", leaderboardHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/events/{event_id}/stats", leaderboardHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/events/{event_id}/recent", leaderboardHandler.Recent).Methods(http.MethodGet)
	api.HandleFunc("/events/{event_id}/stream", leaderboardHandler.Stream).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
