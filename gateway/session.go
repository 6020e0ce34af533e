package gateway

import "time"

// User is the identity attached to a Session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated user context issued by the gateway.
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"` // Access token expiry
	User         User      `json:"user"`
}

// ExpiresWithin reports whether the access token expires before now+margin.
func (s *Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return s == nil || !now.Add(margin).Before(s.ExpiresAt)
}

// UserAttributes are the user fields that can be changed with Auth.UpdateUser.
// Empty values are left unchanged.
type UserAttributes struct {
	Email    string
	Password string
}

type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
	EventSessionExpired AuthEventType = "SESSION_EXPIRED"
)

// AuthEvent is pushed to OnAuthStateChange subscribers.
type AuthEvent struct {
	Type      AuthEventType
	SessionID string
	Session   *Session // Set for SIGNED_IN, TOKEN_REFRESHED and USER_UPDATED
	User      User
}
