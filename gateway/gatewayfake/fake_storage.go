package gatewayfake

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-content-admin/gateway"
)

var _ gateway.Storage = (*FakeStorage)(nil)

type storedObject struct {
	data        []byte
	contentType string
}

// FakeStorage is an in-memory bucket store. It is also an http.Handler that
// serves objects under "/<bucket>/<path>", so public URLs can be fetched when
// it is mounted behind an httptest.Server.
type FakeStorage struct {
	objects map[string]storedObject
	baseURL string
	uploads int
	lock    sync.RWMutex
}

func NewFakeStorage(baseURL string) *FakeStorage {
	return &FakeStorage{
		objects: make(map[string]storedObject),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// SetBaseURL changes the prefix of public URLs (e.g. once a test server is started)
func (fs *FakeStorage) SetBaseURL(baseURL string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.baseURL = strings.TrimSuffix(baseURL, "/")
}

func (fs *FakeStorage) Upload(_ context.Context, bucket, path string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.uploads++
	fs.objects[bucket+"/"+path] = storedObject{data: data, contentType: contentType}
	return nil
}

func (fs *FakeStorage) PublicURL(bucket, path string) string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.baseURL + "/" + bucket + "/" + path
}

func (fs *FakeStorage) Remove(_ context.Context, bucket, path string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	key := bucket + "/" + path
	if _, ok := fs.objects[key]; !ok {
		return gateway.ErrObjectNotFound
	}
	delete(fs.objects, key)
	return nil
}

func (fs *FakeStorage) Ping(context.Context) error {
	return nil
}

// Object returns the stored bytes of bucket/path
func (fs *FakeStorage) Object(bucket, path string) ([]byte, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	o, ok := fs.objects[bucket+"/"+path]
	return o.data, ok
}

// Len is the number of stored objects
func (fs *FakeStorage) Len() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return len(fs.objects)
}

// Uploads is the number of Upload calls that reached the store
func (fs *FakeStorage) Uploads() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.uploads
}

func (fs *FakeStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")

	fs.lock.RLock()
	o, ok := fs.objects[key]
	fs.lock.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if o.contentType != "" {
		w.Header().Set("Content-Type", o.contentType)
	}
	http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(o.data))
}
