package sessions

import (
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the server side record behind an issued access token.
// Deleting it revokes every access token carrying its ID.
type Session struct {
	ID           string    `json:"id"`            // Unique session identifier (UUID), the "sid" claim
	UserID       string    `json:"user_id"`       // Owner of the session
	Email        string    `json:"email"`         // Owner email at sign-in time
	RefreshToken string    `json:"refresh_token"` // Current refresh token, rotated on every refresh
	CreatedAt    time.Time `json:"created_at"`    // When the user signed in
	ExpiresAt    time.Time `json:"expires_at"`    // When the refresh token stops working
}

// Expired reports whether the session can no longer be refreshed
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
