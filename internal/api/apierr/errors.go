package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/qhunt/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError. CorrectType is only set for WRONG_TYPE.
type ErrorResponse struct {
	Success     bool     `json:"success"`
	Error       APIError `json:"error"`
	CorrectType string   `json:"correct_type,omitempty"`
}

// Error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeMissingFields     = "MISSING_FIELDS"
	CodeNameInvalid       = "NAME_INVALID"
	CodeGameNotOpen       = "GAME_NOT_OPEN"
	CodeInvalidTeam       = "INVALID_TEAM"
	CodeEventNotFound     = "EVENT_NOT_FOUND"
	CodeEventExists       = "EVENT_EXISTS"
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConfigConflict    = "CONFIG_CONFLICT"
	CodeConfigLocked      = "CONFIG_LOCKED"
	CodeNotRegistered     = "NOT_REGISTERED"
	CodePlayerNotStarted  = "PLAYER_NOT_STARTED"
	CodePlayerFinished    = "PLAYER_FINISHED"
	CodeGameNotActive     = "GAME_NOT_ACTIVE"
	CodeTimeExpired       = "TIME_EXPIRED"
	CodeCodeNotFound      = "CODE_NOT_FOUND"
	CodeWrongType         = "WRONG_TYPE"
	CodeAlreadyScanned    = "ALREADY_SCANNED"
	CodeInvalidMethod     = "INVALID_METHOD"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status      int
	apiError    APIError
	correctType string
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Success:     false,
		Error:       he.apiError,
		CorrectType: he.correctType,
	})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// A wrong hunt type is gameplay guidance, not a failed request
	var wrongType *model.WrongTypeError
	if errors.As(err, &wrongType) {
		return &httpError{
			status:      http.StatusOK,
			apiError:    APIError{CodeWrongType, "This code belongs to another hunt type"},
			correctType: string(wrongType.Required),
		}
	}

	switch {
	// Registration
	case errors.Is(err, model.ErrMissingFields):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeMissingFields, "Missing required fields"}}
	case errors.Is(err, model.ErrNameInvalid):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeNameInvalid, "Name must be between 2 and 20 characters"}}
	case errors.Is(err, model.ErrGameNotOpen):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeGameNotOpen, "Registration is closed"}}
	case errors.Is(err, model.ErrInvalidTeam):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidTeam, "Team does not exist"}}

	// Event and config
	case errors.Is(err, model.ErrEventNotFound):
		return &httpError{status: http.StatusNotFound, apiError: APIError{CodeEventNotFound, "Event not found"}}
	case errors.Is(err, model.ErrEventExists):
		return &httpError{status: http.StatusConflict, apiError: APIError{CodeEventExists, "Event already exists"}}
	case errors.Is(err, model.ErrInvalidConfig):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidConfig, err.Error()}}
	case errors.Is(err, model.ErrInvalidTransition):
		return &httpError{status: http.StatusConflict, apiError: APIError{CodeInvalidTransition, "Phase change not allowed"}}
	case errors.Is(err, model.ErrConfigConflict):
		return &httpError{status: http.StatusConflict, apiError: APIError{CodeConfigConflict, "Game configuration changed, try again"}}
	case errors.Is(err, model.ErrConfigLocked):
		return &httpError{status: http.StatusConflict, apiError: APIError{CodeConfigLocked, "Game rules can only change during registration"}}

	// Players and scans
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{status: http.StatusNotFound, apiError: APIError{CodeNotRegistered, "Player is not registered"}}
	case errors.Is(err, model.ErrPlayerNotStarted):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodePlayerNotStarted, "Start the game before scanning"}}
	case errors.Is(err, model.ErrPlayerFinished):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodePlayerFinished, "You have already finished"}}
	case errors.Is(err, model.ErrGameNotActive):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeGameNotActive, "The game is not running"}}
	case errors.Is(err, model.ErrTimeExpired):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeTimeExpired, "Time is up"}}
	case errors.Is(err, model.ErrCodeNotFound):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeCodeNotFound, "Code not found"}}
	case errors.Is(err, model.ErrAlreadyScanned):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeAlreadyScanned, "You already scanned this code"}}
	case errors.Is(err, model.ErrInvalidMethod):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidMethod, "Method must be qr or manual"}}

	default:
		return &httpError{status: http.StatusInternalServerError, apiError: APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidRequest, message}}
}

// NewRateLimitedError creates a too many requests error
func NewRateLimitedError() error {
	return &httpError{status: http.StatusTooManyRequests, apiError: APIError{CodeRateLimited, "Too many requests"}}
}

// NewInternalError creates an internal server error. A non-empty requestID is
// quoted in the message so operators can find the matching log line.
func NewInternalError(requestID string) error {
	msg := "Internal server error"
	if requestID != "" {
		msg += " (request " + requestID + ")"
	}
	return &httpError{status: http.StatusInternalServerError, apiError: APIError{CodeInternalError, msg}}
}
