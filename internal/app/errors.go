package app

import "errors"

// Request conflicts. The operation is aborted without changing state.
var (
	ErrAlreadyInSession = errors.New("player already in a game")
	ErrAlreadyQueued    = errors.New("player already waiting for an opponent")
)

var (
	ErrNotInSession   = errors.New("player not in a game")
	ErrNotInPair      = errors.New("player not part of this rematch")
	ErrInvalidPlayers = errors.New("a game needs two distinct players")
	ErrInvalidCountry = errors.New("country must be 1-64 characters")
)

// IsConflictError reports whether err is a conflict with existing state.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyInSession) || errors.Is(err, ErrAlreadyQueued)
}
