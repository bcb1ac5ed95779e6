package services

import "errors"

// Sentinel errors surfaced to handlers, which map them onto HTTP
// statuses. Anything else is treated as an internal store failure.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("action not authorized")
	ErrForbidden    = errors.New("access denied")
	ErrConflict     = errors.New("resource already exists")
	ErrValidation   = errors.New("invalid request")
)
