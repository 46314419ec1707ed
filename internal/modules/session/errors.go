package session

import (
	"errors"

	"nile/internal/modules/acceptance"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrClosed       = errors.New("session closed")
	ErrInvalidPhase = errors.New("action not allowed in current phase")
	ErrBusy         = errors.New("another request is in flight")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("session belongs to another user")
	// ErrNothingAccepted is shared with the ledger so callers can match either.
	ErrNothingAccepted = acceptance.ErrNothingAccepted
)
