package fakeuserrepo_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-content-admin/users"
	fakeuserrepo "github.com/jrsteele09/go-content-admin/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: "B@example.com"}
	require.NoError(t, repo.Upsert(ctx, u))
	require.NoError(t, repo.Upsert(ctx, &users.User{Email: "a@example.com"}))

	got, err := repo.GetByEmail(ctx, "b@EXAMPLE.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	list, err := repo.List(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "a@example.com", list[0].Email)

	u.Email = "c@example.com"
	require.NoError(t, repo.Upsert(ctx, u))
	_, err = repo.GetByEmail(ctx, "b@example.com")
	require.ErrorIs(t, err, users.ErrUserNotFound)

	require.NoError(t, repo.Delete(ctx, u.ID))
	require.ErrorIs(t, repo.Delete(ctx, u.ID), users.ErrUserNotFound)
}
