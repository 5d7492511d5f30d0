package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Event errors
	ErrEventNotFound     = errors.New("event not found")
	ErrEventExists       = errors.New("event already exists")
	ErrInvalidConfig     = errors.New("invalid game configuration")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrConfigConflict    = errors.New("game configuration changed concurrently")
	ErrConfigLocked      = errors.New("game rules can only change during registration")

	// Registration errors
	ErrMissingFields = errors.New("missing required fields")
	ErrNameInvalid   = errors.New("name must be between 2 and 20 characters")
	ErrGameNotOpen   = errors.New("game is not open for registration")
	ErrInvalidTeam   = errors.New("team does not exist")

	// Player errors
	ErrPlayerNotFound   = errors.New("player not registered")
	ErrPlayerExists     = errors.New("player already registered")
	ErrPlayerNotStarted = errors.New("player has not started the game")
	ErrPlayerFinished   = errors.New("player has already finished")

	// Scan errors
	ErrGameNotActive  = errors.New("game is not active")
	ErrTimeExpired    = errors.New("game time has expired")
	ErrCodeNotFound   = errors.New("code not found")
	ErrWrongType      = errors.New("code type does not match assigned type")
	ErrAlreadyScanned = errors.New("code already scanned")
	ErrInvalidMethod  = errors.New("invalid scan method")
)

// WrongTypeError is returned when a player scans a code outside their assigned type.
// It matches ErrWrongType under errors.Is.
type WrongTypeError struct {
	Required CodeType
	Got      CodeType
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("code type %q does not match assigned type %q", e.Got, e.Required)
}

// Is reports whether target is ErrWrongType
func (e *WrongTypeError) Is(target error) bool {
	return target == ErrWrongType
}
