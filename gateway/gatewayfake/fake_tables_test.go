package gatewayfake_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/gateway/gatewayfake"
	"github.com/stretchr/testify/require"
)

func TestFakeTablesCRUD(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ft := gatewayfake.NewFakeTables("events").WithNowTime(func() time.Time {
		now = now.Add(time.Minute)
		return now
	})

	first, err := ft.Insert(ctx, "events", gateway.Record{"title": "First"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID())
	second, err := ft.Insert(ctx, "events", gateway.Record{"title": "Second"})
	require.NoError(t, err)

	res, err := ft.Select(ctx, "events", gateway.Query{}.OrderBy("created_at", false).WithCount())
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.Equal(t, second.ID(), res.Records[0].ID())

	updated, err := ft.Update(ctx, "events", first.ID(), gateway.Record{"location": "Remote"})
	require.NoError(t, err)
	require.Equal(t, "First", updated["title"])
	require.Equal(t, "Remote", updated["location"])

	require.NoError(t, ft.Delete(ctx, "events", first.ID()))
	require.ErrorIs(t, ft.Delete(ctx, "events", first.ID()), gateway.ErrNotFound)

	res, err = ft.Select(ctx, "events", gateway.Query{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Equal(t, second.ID(), res.Records[0].ID())
}

func TestFakeTablesReturnsCopies(t *testing.T) {
	ctx := context.Background()
	ft := gatewayfake.NewFakeTables()

	in := gateway.Record{"title": "a"}
	stored, err := ft.Insert(ctx, "posts", in)
	require.NoError(t, err)
	in["title"] = "mutated"
	stored["title"] = "mutated"

	res, err := ft.Select(ctx, "posts", gateway.Query{}.Eq("id", stored.ID()))
	require.NoError(t, err)
	require.Equal(t, "a", res.Records[0]["title"])
}

func TestFakeTablesPreconditionAndUnknownTable(t *testing.T) {
	ctx := context.Background()
	ft := gatewayfake.NewFakeTables("events")

	rec, err := ft.Insert(ctx, "events", gateway.Record{"title": "x", "updated_at": "v1"})
	require.NoError(t, err)

	_, err = ft.Update(ctx, "events", rec.ID(), gateway.Record{"title": "y"}, gateway.Filter{Column: "updated_at", Value: "v0"})
	require.ErrorIs(t, err, gateway.ErrConflict)

	_, err = ft.Select(ctx, "nope", gateway.Query{})
	require.ErrorIs(t, err, gateway.ErrUnknownTable)
}

func TestFakeTablesFailNext(t *testing.T) {
	ctx := context.Background()
	ft := gatewayfake.NewFakeTables()
	boom := errors.New("boom")

	ft.FailNext("insert", boom)
	_, err := ft.Insert(ctx, "t", gateway.Record{})
	require.ErrorIs(t, err, boom)

	_, err = ft.Insert(ctx, "t", gateway.Record{})
	require.NoError(t, err)
}

func TestFakeStorageServesPublicURL(t *testing.T) {
	ctx := context.Background()
	fs := gatewayfake.NewFakeStorage("")
	srv := httptest.NewServer(fs)
	defer srv.Close()
	fs.SetBaseURL(srv.URL)

	require.NoError(t, fs.Upload(ctx, "files", "a.txt", strings.NewReader("hello"), 5, "text/plain"))
	url := fs.PublicURL("files", "a.txt")
	require.Equal(t, srv.URL+"/files/a.txt", url)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hello", string(body))

	require.NoError(t, fs.Remove(ctx, "files", "a.txt"))
	require.ErrorIs(t, fs.Remove(ctx, "files", "a.txt"), gateway.ErrObjectNotFound)
	require.Equal(t, 0, fs.Len())
}
