package gateway

import "errors"

var (
	// ErrInvalidCredentials is surfaced verbatim to the person signing in.
	ErrInvalidCredentials = errors.New("Invalid login credentials") //nolint:staticcheck // user facing text
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("record was changed by someone else")
	ErrUnknownTable       = errors.New("unknown table")
	ErrObjectNotFound     = errors.New("object not found")
)
