package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jrsteele09/go-content-admin/auth"
	"github.com/jrsteele09/go-content-admin/diagnostics"
	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/gateway/gatewayfake"
	"github.com/jrsteele09/go-content-admin/gateway/identity"
	"github.com/jrsteele09/go-content-admin/internal/config"
	"github.com/jrsteele09/go-content-admin/resource"
	"github.com/jrsteele09/go-content-admin/server"
	fakesessionrepo "github.com/jrsteele09/go-content-admin/sessions/repofakes"
	"github.com/jrsteele09/go-content-admin/users"
	fakeuserrepo "github.com/jrsteele09/go-content-admin/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "editor@example.com"
	testPassword = "Password123"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

type testFixture struct {
	tables  *gatewayfake.FakeTables
	storage *gatewayfake.FakeStorage
	srv     *server.Server
	ts      *httptest.Server
}

func setupTestFixture(t *testing.T, checks ...diagnostics.Check) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")

	userRepo := fakeuserrepo.NewFakeUserRepo()
	hash, err := users.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, userRepo.Upsert(context.Background(), &users.User{Email: testEmail, PasswordHash: hash}))

	idp, err := identity.NewService(userRepo, fakesessionrepo.NewFakeSessionRepo(), []byte("test-secret"))
	require.NoError(t, err)

	catalog := resource.DefaultCatalog()
	f := &testFixture{
		tables:  gatewayfake.NewFakeTables(catalog.Tables()...),
		storage: gatewayfake.NewFakeStorage("http://storage.test"),
	}

	f.srv, err = server.New(config.New(), server.Deps{
		Auth:        idp,
		Tables:      f.tables,
		Storage:     f.storage,
		Catalog:     catalog,
		Diagnostics: diagnostics.NewRunner(time.Second, checks...),
		AuthOptions: []auth.Option{auth.WithRetryBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })},
	})
	require.NoError(t, err)

	f.ts = httptest.NewServer(f.srv)
	t.Cleanup(f.ts.Close)
	return f
}

// newClient is a browser: it keeps cookies and does not follow redirects
func (f *testFixture) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (f *testFixture) do(t *testing.T, c *http.Client, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.send(t, c, req)
}

func (f *testFixture) send(t *testing.T, c *http.Client, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp, out
}

func (f *testFixture) signIn(t *testing.T, c *http.Client) {
	t.Helper()
	resp, body := f.do(t, c, http.MethodPost, server.RouteAuthLogin, map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Equal(t, "authenticated", body["state"])
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.do(t, f.newClient(t), http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "404 - Page Not Found", body["error"])
}

func TestLoginRetryReportsEveryAttempt(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	resp, body := f.do(t, c, http.MethodPost, server.RouteAuthLogin, map[string]string{"email": testEmail, "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, []any{"1/3", "2/3", "3/3"}, body["attempts"])
	require.Equal(t, "Invalid login credentials", body["error"])
	require.Equal(t, "unauthenticated", body["state"])

	resp, body = f.do(t, c, http.MethodGet, server.RouteLogin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Invalid login credentials", body["error"])
	require.Equal(t, []any{"3/3"}, body["attempts"])
}

func TestLoginRequiresEmailAndPassword(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.do(t, f.newClient(t), http.MethodPost, server.RouteAuthLogin, map[string]string{"email": testEmail})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, auth.ErrMissingPassword.Error(), body["error"])
}

func TestLoginAcceptsForm(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+server.RouteAuthLogin,
		strings.NewReader("email="+testEmail+"&password="+testPassword))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, body := f.send(t, c, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []any{"1/3"}, body["attempts"])
}

func TestProtectedRoutesRedirectAfterSignOut(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	resp, _ := f.do(t, c, http.MethodGet, "/api/tables/events", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteLogin, resp.Header.Get("Location"))

	f.signIn(t, c)
	resp, _ = f.do(t, c, http.MethodGet, "/api/tables/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, c, http.MethodPost, server.RouteAuthLogout, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "unauthenticated", body["state"])

	resp, _ = f.do(t, c, http.MethodGet, "/api/tables/events", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteLogin, resp.Header.Get("Location"))
}

func TestConsolesAreIsolated(t *testing.T) {
	f := setupTestFixture(t)
	alice, bob := f.newClient(t), f.newClient(t)

	f.signIn(t, alice)

	_, body := f.do(t, bob, http.MethodGet, server.RouteSession, nil)
	require.Equal(t, "unauthenticated", body["state"])
	_, body = f.do(t, alice, http.MethodGet, server.RouteSession, nil)
	require.Equal(t, "authenticated", body["state"])
	require.Equal(t, 2, f.srv.Consoles().Len())
}

func TestSessionIsRestoredFromTokenCookies(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	// Drop the console cookie, as if the server had restarted
	var kept []*http.Cookie
	for _, ck := range c.Jar.Cookies(mustParse(t, f.ts.URL)) {
		if ck.Name != "console_id" {
			kept = append(kept, ck)
		}
	}
	require.Len(t, kept, 2)

	restored := f.newClient(t)
	restored.Jar.SetCookies(mustParse(t, f.ts.URL), kept)

	resp, body := f.do(t, restored, http.MethodGet, server.RouteSession, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "authenticated", body["state"])
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestTableCreateAndDelete(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	resp, body := f.do(t, c, http.MethodPost, "/api/tables/events/new", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	modal := body["modal"].(map[string]any)
	require.Equal(t, "create", modal["mode"])

	resp, body = f.do(t, c, http.MethodPost, "/api/tables/events/submit", map[string]string{
		"title":      "Launch Event",
		"event_date": "2026-05-01",
		"location":   "Remote",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Nil(t, body["modal"])
	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	cells := row["cells"].([]any)
	require.Equal(t, "Launch Event", cells[0].(map[string]any)["text"])
	require.Equal(t, "May 1, 2026", cells[1].(map[string]any)["text"])
	id := row["id"].(string)

	resp, body = f.do(t, c, http.MethodGet, "/api/tables/events/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Remote", body["location"])

	// Without confirmation nothing is deleted
	resp, body = f.do(t, c, http.MethodDelete, "/api/tables/events/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["deleted"])

	resp, body = f.do(t, c, http.MethodDelete, "/api/tables/events/"+id+"?confirm=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["deleted"])
	require.Empty(t, body["rows"])

	resp, body = f.do(t, c, http.MethodGet, "/api/tables/events/"+id, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "This record no longer exists.", body["error"])
	require.Equal(t, "/api/tables/events", body["back"])
}

func TestSubmitValidationKeepsModalOpen(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	f.do(t, c, http.MethodPost, "/api/tables/events/new", nil)
	resp, body := f.do(t, c, http.MethodPost, "/api/tables/events/submit", map[string]string{"event_date": "01/05/2026"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, body["modal"])
	fieldErrors := body["field_errors"].(map[string]any)
	require.Contains(t, fieldErrors, "title")
	require.Contains(t, fieldErrors, "event_date")
	require.Equal(t, 0, f.storage.Uploads())
}

func TestSubmitWithoutModal(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	resp, _ := f.do(t, c, http.MethodPost, "/api/tables/events/submit", map[string]string{"title": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitWriteFailure(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	f.do(t, c, http.MethodPost, "/api/tables/events/new", nil)
	f.tables.FailNext("insert", errors.New("connection refused"))

	resp, body := f.do(t, c, http.MethodPost, "/api/tables/events/submit", map[string]string{"title": "Launch Event", "event_date": "2026-05-01"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "connection refused", body["modal"].(map[string]any)["error"])
}

func TestUnknownTable(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	resp, _ := f.do(t, c, http.MethodGet, "/api/tables/payments", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCatalog(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	req, err := http.NewRequest(http.MethodGet, f.ts.URL+server.RouteTables, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var schemas []resource.Schema
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&schemas))
	require.Len(t, schemas, len(resource.DefaultCatalog()))
}

func multipartFile(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	return multipartForm(t, nil, field, name, data)
}

func multipartForm(t *testing.T, values map[string]string, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	buf, contentType := multipartFile(t, "file", "banner.png", pngBytes)
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/uploads/image", buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)

	resp, body := f.send(t, c, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	require.Equal(t, "images", body["bucket"])
	require.True(t, strings.HasPrefix(body["url"].(string), "http://storage.test/images/"))
	require.Equal(t, 1, f.storage.Len())
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	buf, contentType := multipartFile(t, "file", "notes.exe", pngBytes)
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/uploads/file", buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)

	resp, _ := f.send(t, c, req)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, 0, f.storage.Uploads())
}

func TestSubmitMultipartThenPartialEdit(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	resp, _ := f.do(t, c, http.MethodPost, "/api/tables/events/new", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf, contentType := multipartForm(t, map[string]string{
		"title":      "Launch Event",
		"event_date": "2026-05-01",
		"location":   "Remote",
	}, "image_url", "banner.png", pngBytes)
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/tables/events/submit", buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)

	resp, body := f.send(t, c, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Nil(t, body["modal"])
	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	id := rows[0].(map[string]any)["id"].(string)
	require.Equal(t, 1, f.storage.Len())

	_, created := f.do(t, c, http.MethodGet, "/api/tables/events/"+id, nil)
	imageURL, _ := created["image_url"].(string)
	require.True(t, strings.HasPrefix(imageURL, "http://storage.test/images/"), imageURL)

	resp, body = f.do(t, c, http.MethodPost, "/api/tables/events/"+id+"/edit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Equal(t, "edit", body["modal"].(map[string]any)["mode"])

	// Only the changed field is sent
	resp, body = f.do(t, c, http.MethodPost, "/api/tables/events/submit", map[string]string{"location": "Berlin"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	_, edited := f.do(t, c, http.MethodGet, "/api/tables/events/"+id, nil)
	require.Equal(t, "Berlin", edited["location"])
	require.Equal(t, "Launch Event", edited["title"])
	require.Equal(t, created["event_date"], edited["event_date"])
	require.Equal(t, imageURL, edited["image_url"])
	require.Equal(t, 1, f.storage.Len())
}

func TestOversizedBodiesAreRejected(t *testing.T) {
	t.Setenv("UPLOAD_IMAGE_MAX_BYTES", "64")
	t.Setenv("UPLOAD_FILE_MAX_BYTES", "64")
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.signIn(t, c)

	oversized := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 1<<20+32<<10)...)

	buf, contentType := multipartFile(t, "file", "banner.png", oversized)
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/uploads/image", buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	resp, _ := f.send(t, c, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	f.do(t, c, http.MethodPost, "/api/tables/events/new", nil)
	buf, contentType = multipartForm(t, map[string]string{"title": "Launch Event", "event_date": "2026-05-01"}, "image_url", "banner.png", oversized)
	req, err = http.NewRequest(http.MethodPost, f.ts.URL+"/api/tables/events/submit", buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	resp, _ = f.send(t, c, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	require.Equal(t, 0, f.storage.Uploads())
	result, err := f.tables.Select(context.Background(), "events", gateway.Query{})
	require.NoError(t, err)
	require.Empty(t, result.Records)
}

func TestDarkMode(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	_, body := f.do(t, c, http.MethodGet, server.RouteDarkMode, nil)
	require.Equal(t, false, body["dark_mode"])

	resp, body := f.do(t, c, http.MethodPut, server.RouteDarkMode, map[string]bool{"dark_mode": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["dark_mode"])

	_, body = f.do(t, c, http.MethodGet, server.RouteDarkMode, nil)
	require.Equal(t, true, body["dark_mode"])

	// Another browser keeps its own preference
	_, body = f.do(t, f.newClient(t), http.MethodGet, server.RouteDarkMode, nil)
	require.Equal(t, false, body["dark_mode"])
}

func TestDiagnostics(t *testing.T) {
	f := setupTestFixture(t,
		diagnostics.Check{Name: "database", Run: func(context.Context) error { return nil }},
		diagnostics.Check{Name: "storage", Run: func(context.Context) error { return errors.New("bucket missing") }},
	)

	resp, body := f.do(t, f.newClient(t), http.MethodGet, server.RouteDiagnostics, nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, false, body["ok"])
	require.Len(t, body["results"], 2)
}

func TestPanicsAreRecovered(t *testing.T) {
	f := setupTestFixture(t)
	h := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) { panic("boom") }, f.srv.APIMiddleware()...)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCorsAllowsConfiguredOrigin(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://site.example.com")
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteSession, nil)
	req.Header.Set("Origin", "https://site.example.com")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	require.Equal(t, "https://site.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
