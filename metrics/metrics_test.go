package metrics_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/gateway/gatewayfake"
	"github.com/jrsteele09/go-content-admin/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInstrumentTables(t *testing.T) {
	ctx := context.Background()
	fake := gatewayfake.NewFakeTables("metric_events")
	tables := metrics.InstrumentTables(fake)

	okBefore := testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues("insert", "metric_events", "ok"))
	errBefore := testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues("delete", "metric_events", "error"))

	r, err := tables.Insert(ctx, "metric_events", gateway.Record{"title": "x"})
	require.NoError(t, err)
	_, err = tables.Select(ctx, "metric_events", gateway.Query{})
	require.NoError(t, err)
	require.ErrorIs(t, tables.Delete(ctx, "metric_events", "missing"), gateway.ErrNotFound)
	require.NoError(t, tables.Delete(ctx, "metric_events", r.ID()))

	require.Equal(t, okBefore+1, testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues("insert", "metric_events", "ok")))
	require.Equal(t, errBefore+1, testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues("delete", "metric_events", "error")))

	pinger, ok := tables.(gateway.Pinger)
	require.True(t, ok)
	require.NoError(t, pinger.Ping(ctx))
}

func TestInstrumentStorage(t *testing.T) {
	ctx := context.Background()
	fake := gatewayfake.NewFakeStorage("http://storage.test")
	storage := metrics.InstrumentStorage(fake)

	before := testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues("upload", "metric_bucket", "ok"))
	require.NoError(t, storage.Upload(ctx, "metric_bucket", "a.txt", bytes.NewReader([]byte("hi")), 2, "text/plain"))
	require.Equal(t, before+1, testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues("upload", "metric_bucket", "ok")))
	require.Equal(t, "http://storage.test/metric_bucket/a.txt", storage.PublicURL("metric_bucket", "a.txt"))

	require.NoError(t, storage.Remove(ctx, "metric_bucket", "a.txt"))
	require.Error(t, storage.Remove(ctx, "metric_bucket", "a.txt"))
}

func TestRecordHelpersAndHandler(t *testing.T) {
	before := testutil.ToFloat64(metrics.SignInAttemptsTotal.WithLabelValues("error"))
	metrics.RecordSignIn(errors.New("Invalid login credentials"))
	require.Equal(t, before+1, testutil.ToFloat64(metrics.SignInAttemptsTotal.WithLabelValues("error")))

	metrics.RecordCheck("database", true)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.CheckStatus.WithLabelValues("database")))
	metrics.RecordCheck("database", false)
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.CheckStatus.WithLabelValues("database")))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "content_admin_sign_in_attempts_total")
}
