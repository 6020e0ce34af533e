package redisrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-content-admin/sessions"
	"github.com/jrsteele09/go-content-admin/sessions/redisrepo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*redisrepo.SessionRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redisrepo.New(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestUpsertGetAndRotateRefreshToken(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRepo(t)

	s := &sessions.Session{ID: "s-1", UserID: "u-1", Email: "a@example.com", RefreshToken: "r-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Upsert(ctx, s))

	got, err := repo.GetByRefreshToken(ctx, "r-1")
	require.NoError(t, err)
	require.Equal(t, "u-1", got.UserID)

	s.RefreshToken = "r-2"
	require.NoError(t, repo.Upsert(ctx, s))

	_, err = repo.GetByRefreshToken(ctx, "r-1")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
	got, err = repo.GetByRefreshToken(ctx, "r-2")
	require.NoError(t, err)
	require.Equal(t, "s-1", got.ID)
	require.True(t, mr.Exists("session:s-1"))
}

func TestDeleteRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRepo(t)

	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "s-1", RefreshToken: "r-1", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, repo.Delete(ctx, "s-1"))

	require.False(t, mr.Exists("session:s-1"))
	require.False(t, mr.Exists("session:refresh:r-1"))
	require.ErrorIs(t, repo.Delete(ctx, "s-1"), sessions.ErrSessionNotFound)
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "old", RefreshToken: "r-old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "live", RefreshToken: "r-live", ExpiresAt: now.Add(time.Hour)}))

	expired, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "old", expired[0].ID)

	_, err = repo.Get(ctx, "old")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
	_, err = repo.Get(ctx, "live")
	require.NoError(t, err)
}
