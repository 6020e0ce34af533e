package errors

import (
	"errors"
)

// Common error types for the admin console
var (
	// Authentication errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrConsoleNotFound  = errors.New("console not found")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownKind    = errors.New("unknown upload kind")
)
