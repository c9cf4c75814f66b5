package session

import "errors"

// Error kinds returned by Machine operations. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrBoundary        = errors.New("out of bounds")
	ErrPersistence     = errors.New("persistence failed")
	ErrNoActiveSession = errors.New("no active session")
)
