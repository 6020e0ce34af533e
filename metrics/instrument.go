package metrics

import (
	"context"
	"io"
	"time"

	"github.com/jrsteele09/go-content-admin/gateway"
)

var (
	_ gateway.Tables  = (*instrumentedTables)(nil)
	_ gateway.Storage = (*instrumentedStorage)(nil)
)

type instrumentedTables struct {
	next gateway.Tables
}

// InstrumentTables records every call made through t.
func InstrumentTables(t gateway.Tables) gateway.Tables {
	return &instrumentedTables{next: t}
}

func (it *instrumentedTables) Select(ctx context.Context, table string, q gateway.Query) (gateway.Result, error) {
	started := time.Now()
	res, err := it.next.Select(ctx, table, q)
	RecordGatewayCall("select", table, err, started)
	return res, err
}

func (it *instrumentedTables) Insert(ctx context.Context, table string, values gateway.Record) (gateway.Record, error) {
	started := time.Now()
	r, err := it.next.Insert(ctx, table, values)
	RecordGatewayCall("insert", table, err, started)
	return r, err
}

func (it *instrumentedTables) Update(ctx context.Context, table, id string, values gateway.Record, match ...gateway.Filter) (gateway.Record, error) {
	started := time.Now()
	r, err := it.next.Update(ctx, table, id, values, match...)
	RecordGatewayCall("update", table, err, started)
	return r, err
}

func (it *instrumentedTables) Delete(ctx context.Context, table, id string) error {
	started := time.Now()
	err := it.next.Delete(ctx, table, id)
	RecordGatewayCall("delete", table, err, started)
	return err
}

func (it *instrumentedTables) Ping(ctx context.Context) error {
	if p, ok := it.next.(gateway.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type instrumentedStorage struct {
	next gateway.Storage
}

// InstrumentStorage records every call made through s.
func InstrumentStorage(s gateway.Storage) gateway.Storage {
	return &instrumentedStorage{next: s}
}

func (is *instrumentedStorage) Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) error {
	started := time.Now()
	err := is.next.Upload(ctx, bucket, path, body, size, contentType)
	RecordGatewayCall("upload", bucket, err, started)
	if err == nil {
		UploadedBytes.WithLabelValues(bucket).Observe(float64(size))
	}
	return err
}

func (is *instrumentedStorage) PublicURL(bucket, path string) string {
	return is.next.PublicURL(bucket, path)
}

func (is *instrumentedStorage) Remove(ctx context.Context, bucket, path string) error {
	started := time.Now()
	err := is.next.Remove(ctx, bucket, path)
	RecordGatewayCall("remove", bucket, err, started)
	return err
}

func (is *instrumentedStorage) Ping(ctx context.Context) error {
	if p, ok := is.next.(gateway.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
