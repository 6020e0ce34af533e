// Package redisrepo keeps gateway sessions in Redis.
//
// Layout:
//
//	session:<id>               JSON encoded sessions.Session
//	session:refresh:<token>    session id
//	sessions:expiry            sorted set of session ids scored by expiry (unix ms)
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jrsteele09/go-content-admin/sessions"
	"github.com/redis/go-redis/v9"
)

var _ sessions.Repo = (*SessionRepo)(nil)

const (
	sessionPrefix = "session:"
	refreshPrefix = "session:refresh:"
	expiryKey     = "sessions:expiry"

	// Keys outlive the session so the expiry sweep can still report them
	retainAfterExpiry = 24 * time.Hour
)

type SessionRepo struct {
	client *redis.Client
}

func New(client *redis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

// NewFromURL connects using a redis:// URL
func NewFromURL(url string) (*SessionRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	return New(redis.NewClient(opts)), nil
}

func (r *SessionRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *SessionRepo) Close() error {
	return r.client.Close()
}

func (r *SessionRepo) Upsert(ctx context.Context, session *sessions.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	old, err := r.Get(ctx, session.ID)
	if err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		return err
	}

	ttl := time.Until(session.ExpiresAt) + retainAfterExpiry
	if ttl <= 0 {
		ttl = retainAfterExpiry
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if old != nil && old.RefreshToken != session.RefreshToken {
			p.Del(ctx, refreshPrefix+old.RefreshToken)
		}
		p.Set(ctx, sessionPrefix+session.ID, data, ttl)
		if session.RefreshToken != "" {
			p.Set(ctx, refreshPrefix+session.RefreshToken, session.ID, ttl)
		}
		p.ZAdd(ctx, expiryKey, redis.Z{Score: float64(session.ExpiresAt.UnixMilli()), Member: session.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	data, err := r.client.Get(ctx, sessionPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session := &sessions.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (*sessions.Session, error) {
	sessionID, err := r.client.Get(ctx, refreshPrefix+refreshToken).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return r.Get(ctx, sessionID)
}

func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	session, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return r.remove(ctx, session)
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) ([]*sessions.Session, error) {
	ids, err := r.client.ZRangeByScore(ctx, expiryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range expired sessions: %w", err)
	}

	expired := make([]*sessions.Session, 0, len(ids))
	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if errors.Is(err, sessions.ErrSessionNotFound) {
			r.client.ZRem(ctx, expiryKey, id)
			continue
		}
		if err != nil {
			return expired, err
		}
		if err := r.remove(ctx, session); err != nil {
			return expired, err
		}
		expired = append(expired, session)
	}
	return expired, nil
}

func (r *SessionRepo) remove(ctx context.Context, session *sessions.Session) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionPrefix+session.ID)
		if session.RefreshToken != "" {
			p.Del(ctx, refreshPrefix+session.RefreshToken)
		}
		p.ZRem(ctx, expiryKey, session.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
