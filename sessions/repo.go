package sessions

import (
	"context"
	"time"
)

// Repo defines the interface for session storage operations.
type Repo interface {
	// Upsert creates or updates a session
	Upsert(ctx context.Context, session *Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (*Session, error)

	// GetByRefreshToken retrieves the session currently holding refreshToken
	GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)

	// Delete removes a session by ID
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired removes sessions that expired before now and returns them
	DeleteExpired(ctx context.Context, now time.Time) ([]*Session, error)
}
