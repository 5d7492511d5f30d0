package game

import (
	"errors"
	"fmt"

	"github.com/mcoot/qhunt/internal/model"
)

// Hint is the guidance shown after an accepted scan
func Hint(remaining int, complete bool, assigned model.CodeType) string {
	switch {
	case complete:
		return "All codes found!"
	case remaining == 0:
		return "Keep hunting for more codes."
	case assigned != "" && remaining == 1:
		return fmt.Sprintf("1 %s code left to find.", assigned)
	case assigned != "":
		return fmt.Sprintf("%d %s codes left to find.", remaining, assigned)
	case remaining == 1:
		return "1 code left to find."
	default:
		return fmt.Sprintf("%d codes left to find.", remaining)
	}
}

// Outcome labels a scan result for metrics and traces
func Outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, model.ErrMissingFields), errors.Is(err, model.ErrInvalidMethod):
		return "invalid_request"
	case errors.Is(err, model.ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, model.ErrGameNotActive):
		return "game_not_active"
	case errors.Is(err, model.ErrPlayerNotFound):
		return "not_registered"
	case errors.Is(err, model.ErrPlayerNotStarted):
		return "player_not_started"
	case errors.Is(err, model.ErrPlayerFinished):
		return "player_finished"
	case errors.Is(err, model.ErrTimeExpired):
		return "time_expired"
	case errors.Is(err, model.ErrCodeNotFound):
		return "code_not_found"
	case errors.Is(err, model.ErrWrongType):
		return "wrong_type"
	case errors.Is(err, model.ErrAlreadyScanned):
		return "already_scanned"
	case errors.Is(err, model.ErrConfigConflict):
		return "config_conflict"
	default:
		return "error"
	}
}
