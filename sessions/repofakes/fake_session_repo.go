package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-content-admin/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	refresh  map[string]string // Map refresh tokens to sessionIDs
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
		refresh:  make(map[string]string),
	}
}

func (sr *FakeSessionRepo) Upsert(_ context.Context, session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if old, ok := sr.sessions[session.ID]; ok {
		delete(sr.refresh, old.RefreshToken)
	}
	stored := *session
	sr.sessions[session.ID] = &stored
	if session.RefreshToken != "" {
		sr.refresh[session.RefreshToken] = session.ID
	}
	return nil
}

func (sr *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	s := *session
	return &s, nil
}

func (sr *FakeSessionRepo) GetByRefreshToken(_ context.Context, refreshToken string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	sessionID, ok := sr.refresh[refreshToken]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	s := *sr.sessions[sessionID]
	return &s, nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return sessions.ErrSessionNotFound
	}
	delete(sr.refresh, session.RefreshToken)
	delete(sr.sessions, sessionID)
	return nil
}

func (sr *FakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) ([]*sessions.Session, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	expired := make([]*sessions.Session, 0)
	for sessionID, session := range sr.sessions {
		if session.Expired(now) {
			delete(sr.refresh, session.RefreshToken)
			delete(sr.sessions, sessionID)
			expired = append(expired, session)
		}
	}
	return expired, nil
}
