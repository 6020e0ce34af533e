// Package auth holds the Session/Auth Context: the signed-in state of one
// console, driven by sign-in, sign-out and events pushed by the identity
// gateway.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jrsteele09/go-content-admin/gateway"
	apperrors "github.com/jrsteele09/go-content-admin/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	MaxSignInAttempts    = 3
	defaultRefreshMargin = time.Minute
)

// Tokens restore a previous session on Init
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Context tracks the auth state of one console
type Context struct {
	gateway       gateway.Auth
	nowTime       func() time.Time
	refreshMargin time.Duration
	maxAttempts   int
	newBackOff    func() backoff.BackOff

	opLock sync.Mutex // serialises gateway operations; never held by event handlers

	lock        sync.RWMutex
	state       State
	session     *gateway.Session
	lastErr     error
	lastAttempt Attempt
	listeners   map[int]func(State)
	listenerID  int

	subscribe   sync.Once
	unsubscribe func()
}

// Option modifies a Context
type Option func(*Context)

func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Context) {
		c.nowTime = nowFunc
	}
}

// WithRefreshMargin sets how long before expiry an access token is refreshed
func WithRefreshMargin(margin time.Duration) Option {
	return func(c *Context) {
		c.refreshMargin = margin
	}
}

// WithMaxAttempts sets the number of attempts SignInWithRetry makes
func WithMaxAttempts(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBackOff sets the backoff used between sign-in attempts
func WithRetryBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Context) {
		c.newBackOff = newBackOff
	}
}

func NewContext(gw gateway.Auth, options ...Option) *Context {
	c := &Context{
		gateway:       gw,
		nowTime:       time.Now,
		refreshMargin: defaultRefreshMargin,
		maxAttempts:   MaxSignInAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		state:     StateUnknown,
		listeners: make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Init resolves the Unknown state from previously issued tokens. An expired
// access token is refreshed when a refresh token is available.
func (c *Context) Init(ctx context.Context, tokens Tokens) State {
	c.watch()

	c.opLock.Lock()
	defer c.opLock.Unlock()

	var (
		session *gateway.Session
		err     error
	)
	if tokens.AccessToken != "" {
		session, err = c.gateway.GetSession(ctx, tokens.AccessToken)
	}
	if session == nil && tokens.RefreshToken != "" && (tokens.AccessToken == "" || errors.Is(err, gateway.ErrSessionExpired)) {
		session, err = c.gateway.RefreshSession(ctx, tokens.RefreshToken)
	}
	if err != nil {
		log.Debug().Err(err).Msg("no session restored")
	}

	if session != nil {
		c.update(func() {
			c.session = session
			c.state = StateAuthenticated
		})
	} else {
		c.update(func() {
			c.session = nil
			c.state = StateUnauthenticated
		})
	}
	return c.State()
}

// SignIn signs in with email and password. Gateway errors are returned as is
// so their message can be shown to the user.
func (c *Context) SignIn(ctx context.Context, email, password string) error {
	c.watch()
	if err := (Credentials{Email: email, Password: password}).Validate(); err != nil {
		c.fail(err)
		return err
	}

	c.opLock.Lock()
	defer c.opLock.Unlock()
	return c.signIn(ctx, email, password)
}

// SignInWithRetry makes up to MaxSignInAttempts (or WithMaxAttempts) sign-in attempts with
// exponential backoff between them. report, when set, is called after every
// attempt. The last attempt is returned together with its error.
func (c *Context) SignInWithRetry(ctx context.Context, email, password string, report func(Attempt)) (Attempt, error) {
	c.watch()
	if err := (Credentials{Email: email, Password: password}).Validate(); err != nil {
		c.fail(err)
		return Attempt{Max: c.maxAttempts, Err: err}, err
	}

	c.opLock.Lock()
	defer c.opLock.Unlock()

	var attempt Attempt
	operation := func() error {
		attempt = Attempt{Number: attempt.Number + 1, Max: c.maxAttempts}
		attempt.Err = c.signIn(ctx, email, password)

		c.lock.Lock()
		c.lastAttempt = attempt
		c.lock.Unlock()

		if report != nil {
			report(attempt)
		}
		return attempt.Err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxAttempts-1)), ctx)
	err := backoff.Retry(operation, policy)
	if err != nil && attempt.Err == nil {
		// Context cancelled before the first attempt finished
		attempt.Err = err
	}
	return attempt, err
}

func (c *Context) signIn(ctx context.Context, email, password string) error {
	session, err := c.gateway.SignInWithPassword(ctx, email, password)
	if err != nil {
		c.fail(err)
		return err
	}
	c.update(func() {
		c.session = session
		c.state = StateAuthenticated
		c.lastErr = nil
	})
	log.Info().Str("user", session.User.Email).Str("session_id", session.ID).Msg("signed in")
	return nil
}

// SignOut always clears the local session. A failure to end the remote
// session is logged and otherwise ignored.
func (c *Context) SignOut(ctx context.Context) {
	c.opLock.Lock()
	defer c.opLock.Unlock()

	var session *gateway.Session
	c.update(func() {
		session = c.session
		c.session = nil
		c.state = StateUnauthenticated
		c.lastErr = nil
		c.lastAttempt = Attempt{}
	})
	if session == nil {
		return
	}
	if err := c.gateway.SignOut(ctx, session.AccessToken); err != nil {
		log.Err(err).Str("session_id", session.ID).Msg("remote sign out failed")
	}
}

// ChangePassword sets a new password for the signed-in user
func (c *Context) ChangePassword(ctx context.Context, password string) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}
	if _, err := c.gateway.UpdateUser(ctx, token, gateway.UserAttributes{Password: password}); err != nil {
		return err
	}
	return nil
}

// AccessToken returns a valid access token, refreshing it first when it is
// about to expire. A session that can no longer be refreshed moves the
// context to Unauthenticated.
func (c *Context) AccessToken(ctx context.Context) (string, error) {
	c.lock.RLock()
	session := c.session
	c.lock.RUnlock()
	if session == nil {
		return "", apperrors.ErrNotAuthenticated
	}
	if !session.ExpiresWithin(c.nowTime(), c.refreshMargin) {
		return session.AccessToken, nil
	}

	c.opLock.Lock()
	defer c.opLock.Unlock()

	// Another request may have refreshed while we waited
	c.lock.RLock()
	current := c.session
	c.lock.RUnlock()
	if current == nil {
		return "", apperrors.ErrNotAuthenticated
	}
	if !current.ExpiresWithin(c.nowTime(), c.refreshMargin) {
		return current.AccessToken, nil
	}

	refreshed, err := c.gateway.RefreshSession(ctx, current.RefreshToken)
	if errors.Is(err, gateway.ErrSessionExpired) || errors.Is(err, gateway.ErrSessionNotFound) {
		c.update(func() {
			c.session = nil
			c.state = StateUnauthenticated
			c.lastErr = err
		})
		return "", apperrors.ErrNotAuthenticated
	}
	if err != nil {
		return "", errors.Wrap(err, "[AccessToken] RefreshSession")
	}
	c.update(func() {
		c.session = refreshed
	})
	return refreshed.AccessToken, nil
}

func (c *Context) State() State {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state
}

// Session returns a copy of the current session, or nil
func (c *Context) Session() *gateway.Session {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// LastError is the error of the last failed sign-in, if any
func (c *Context) LastError() error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.lastErr
}

func (c *Context) LastAttempt() Attempt {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.lastAttempt
}

// OnChange registers fn to be called with the new state on every transition
func (c *Context) OnChange(fn func(State)) func() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.listenerID++
	id := c.listenerID
	c.listeners[id] = fn
	return func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		delete(c.listeners, id)
	}
}

// Close stops listening to gateway events
func (c *Context) Close() {
	c.lock.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.lock.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Context) watch() {
	c.subscribe.Do(func() {
		unsubscribe := c.gateway.OnAuthStateChange(c.handleEvent)
		c.lock.Lock()
		c.unsubscribe = unsubscribe
		c.lock.Unlock()
	})
}

func (c *Context) handleEvent(event gateway.AuthEvent) {
	c.update(func() {
		if c.session == nil || c.session.ID != event.SessionID {
			return
		}
		switch event.Type {
		case gateway.EventSignedOut, gateway.EventSessionExpired:
			c.session = nil
			c.state = StateUnauthenticated
		case gateway.EventTokenRefreshed, gateway.EventUserUpdated:
			if event.Session != nil {
				s := *event.Session
				c.session = &s
			}
		}
	})
}

func (c *Context) fail(err error) {
	c.update(func() {
		c.lastErr = err
		if c.state == StateUnknown {
			c.state = StateUnauthenticated
		}
	})
}

// update applies fn under the lock and notifies listeners if the state changed
func (c *Context) update(fn func()) {
	c.lock.Lock()
	before := c.state
	fn()
	after := c.state
	var listeners []func(State)
	if before != after {
		for _, l := range c.listeners {
			listeners = append(listeners, l)
		}
	}
	c.lock.Unlock()

	for _, l := range listeners {
		l(after)
	}
}
