package types

import "errors"

// Failure taxonomy shared by every component. Handlers map these onto HTTP
// statuses; nothing below swallows or retries them.
var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidToken = errors.New("invalid token")
)
