// Package identity is the authentication side of the gateway: email and
// password sign-in, short lived JWT access tokens backed by server side
// sessions, refresh token rotation and pushed auth state events.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/sessions"
	"github.com/jrsteele09/go-content-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ gateway.Auth = (*Service)(nil)

var ErrUserBlocked = errors.New("user is blocked")

// unknownUserHash is compared against when no user has the email
var unknownUserHash = sync.OnceValue(func() string {
	hash, err := users.HashPassword(uuid.NewString())
	if err != nil {
		log.Err(err).Msg("failed to hash the unknown user password")
	}
	return hash
})

const (
	defaultIssuer        = "content-admin"
	defaultAccessExpiry  = time.Hour
	defaultRefreshExpiry = 7 * 24 * time.Hour
	refreshTokenLength   = 32 // 32 bytes = 256 bits
)

// Service implements gateway.Auth
type Service struct {
	users         users.Repo
	sessions      sessions.Repo
	tokens        *tokenSigner
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowTime       func() time.Time // injectable for testing
	checkPassword func(password, hash string) bool

	lock       sync.RWMutex
	listeners  map[int]func(gateway.AuthEvent)
	listenerID int
}

// Option modifies a Service
type Option func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithPasswordCheck replaces the bcrypt comparison (primarily for testing)
func WithPasswordCheck(check func(password, hash string) bool) Option {
	return func(s *Service) {
		s.checkPassword = check
	}
}

// WithTokenExpiry sets access and refresh token lifetimes
func WithTokenExpiry(access, refresh time.Duration) Option {
	return func(s *Service) {
		s.accessExpiry = access
		s.refreshExpiry = refresh
	}
}

// WithIssuer sets the "iss" claim of access tokens
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.tokens.issuer = issuer
	}
}

func NewService(userRepo users.Repo, sessionRepo sessions.Repo, secret []byte, options ...Option) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[identity.NewService] users repo is required")
	}
	if sessionRepo == nil {
		return nil, errors.New("[identity.NewService] sessions repo is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("[identity.NewService] signing secret is required")
	}

	s := &Service{
		users:         userRepo,
		sessions:      sessionRepo,
		tokens:        &tokenSigner{secret: secret, issuer: defaultIssuer},
		accessExpiry:  defaultAccessExpiry,
		refreshExpiry: defaultRefreshExpiry,
		nowTime:       time.Now,
		checkPassword: users.CheckPasswordHash,
		listeners:     make(map[int]func(gateway.AuthEvent)),
	}
	for _, opt := range options {
		opt(s)
	}
	s.tokens.nowTime = func() time.Time { return s.nowTime() }
	return s, nil
}

// SignInWithPassword checks the credentials and opens a new session
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*gateway.Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrUserNotFound) {
		// Same bcrypt work as a wrong password
		s.checkPassword(password, unknownUserHash())
		return nil, gateway.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "[SignInWithPassword] users.GetByEmail")
	}
	if user.PasswordHash == "" || !s.checkPassword(password, user.PasswordHash) {
		return nil, gateway.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}

	now := s.nowTime()
	record := &sessions.Session{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Email:        user.Email,
		RefreshToken: newRefreshToken(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.refreshExpiry),
	}
	if err := s.sessions.Upsert(ctx, record); err != nil {
		return nil, errors.Wrap(err, "[SignInWithPassword] sessions.Upsert")
	}

	user.LastLogin = now
	if err := s.users.Upsert(ctx, user); err != nil {
		log.Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	session, err := s.issue(user, record)
	if err != nil {
		return nil, errors.Wrap(err, "[SignInWithPassword]")
	}
	s.emit(gateway.AuthEvent{Type: gateway.EventSignedIn, SessionID: record.ID, Session: session, User: session.User})
	return session, nil
}

// GetSession validates an access token against its server side session
func (s *Service) GetSession(ctx context.Context, accessToken string) (*gateway.Session, error) {
	claims, err := s.tokens.parse(accessToken, true)
	if errors.Is(err, jwtlib.ErrTokenExpired) {
		return nil, gateway.ErrSessionExpired
	}
	if err != nil {
		return nil, gateway.ErrSessionNotFound
	}

	record, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, sessions.ErrSessionNotFound) {
		return nil, gateway.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[GetSession] sessions.Get")
	}

	return &gateway.Session{
		ID:           record.ID,
		AccessToken:  accessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    claims.ExpiresAt.Time.UTC(),
		User:         gateway.User{ID: claims.Subject, Email: claims.Email},
	}, nil
}

// RefreshSession rotates the refresh token and issues a new access token
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*gateway.Session, error) {
	record, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if errors.Is(err, sessions.ErrSessionNotFound) {
		return nil, gateway.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshSession] sessions.GetByRefreshToken")
	}
	if record.Expired(s.nowTime()) {
		if err := s.sessions.Delete(ctx, record.ID); err != nil {
			log.Err(err).Str("session_id", record.ID).Msg("failed to delete expired session")
		}
		s.emit(gateway.AuthEvent{Type: gateway.EventSessionExpired, SessionID: record.ID, User: gateway.User{ID: record.UserID, Email: record.Email}})
		return nil, gateway.ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshSession] users.GetByID")
	}

	record.RefreshToken = newRefreshToken()
	if err := s.sessions.Upsert(ctx, record); err != nil {
		return nil, errors.Wrap(err, "[RefreshSession] sessions.Upsert")
	}

	session, err := s.issue(user, record)
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshSession]")
	}
	s.emit(gateway.AuthEvent{Type: gateway.EventTokenRefreshed, SessionID: record.ID, Session: session, User: session.User})
	return session, nil
}

// SignOut ends the session the access token belongs to. Expired tokens are accepted.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.parse(accessToken, false)
	if err != nil {
		return gateway.ErrSessionNotFound
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return gateway.ErrSessionNotFound
		}
		return errors.Wrap(err, "[SignOut] sessions.Delete")
	}
	s.emit(gateway.AuthEvent{Type: gateway.EventSignedOut, SessionID: claims.SessionID, User: gateway.User{ID: claims.Subject, Email: claims.Email}})
	return nil
}

// UpdateUser changes the signed in user's email or password
func (s *Service) UpdateUser(ctx context.Context, accessToken string, attrs gateway.UserAttributes) (*gateway.User, error) {
	session, err := s.GetSession(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, session.User.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[UpdateUser] users.GetByID")
	}

	if attrs.Password != "" {
		if err := users.ValidatePasswordStrength(attrs.Password); err != nil {
			return nil, err
		}
		hash, err := users.HashPassword(attrs.Password)
		if err != nil {
			return nil, errors.Wrap(err, "[UpdateUser] HashPassword")
		}
		user.PasswordHash = hash
		user.PasswordChangeRequired = false
	}
	if attrs.Email != "" {
		user.Email = users.NormalizeEmail(attrs.Email)
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[UpdateUser] users.Upsert")
	}

	updated := gateway.User{ID: user.ID, Email: user.Email}
	session.User = updated
	s.emit(gateway.AuthEvent{Type: gateway.EventUserUpdated, SessionID: session.ID, Session: session, User: updated})
	return &updated, nil
}

// OnAuthStateChange registers fn for every auth event
func (s *Service) OnAuthStateChange(fn func(gateway.AuthEvent)) func() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.listenerID++
	id := s.listenerID
	s.listeners[id] = fn
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.listeners, id)
	}
}

// SweepExpired deletes expired sessions and pushes SESSION_EXPIRED for each
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.sessions.DeleteExpired(ctx, s.nowTime())
	for _, record := range expired {
		s.emit(gateway.AuthEvent{Type: gateway.EventSessionExpired, SessionID: record.ID, User: gateway.User{ID: record.UserID, Email: record.Email}})
	}
	if err != nil {
		return len(expired), errors.Wrap(err, "[SweepExpired] sessions.DeleteExpired")
	}
	return len(expired), nil
}

// RunSweeper calls SweepExpired every interval until ctx is done
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepExpired(ctx); err != nil {
				log.Err(err).Msg("session sweep failed")
			} else if n > 0 {
				log.Info().Int("expired", n).Msg("expired sessions removed")
			}
		}
	}
}

func (s *Service) issue(user *users.User, record *sessions.Session) (*gateway.Session, error) {
	accessToken, expiresAt, err := s.tokens.sign(user, record.ID, s.accessExpiry)
	if err != nil {
		return nil, err
	}
	return &gateway.Session{
		ID:           record.ID,
		AccessToken:  accessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         gateway.User{ID: user.ID, Email: user.Email},
	}, nil
}

func (s *Service) emit(event gateway.AuthEvent) {
	s.lock.RLock()
	listeners := make([]func(gateway.AuthEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.lock.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func newRefreshToken() string {
	b := make([]byte, refreshTokenLength)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
