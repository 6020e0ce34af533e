package server_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/jrsteele09/go-content-admin/server"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterPerIP(t *testing.T) {
	rl := server.NewRateLimiter(2)

	require.True(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.2"))
}

func TestSignInIsRateLimited(t *testing.T) {
	t.Setenv("SIGN_IN_RATE_PER_MINUTE", "1")
	f := setupTestFixture(t)
	c := f.newClient(t)

	f.signIn(t, c)
	resp, body := f.do(t, c, http.MethodPost, server.RouteAuthLogin, map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.NotEmpty(t, body["error"])
}

func (f *testFixture) signInFrom(t *testing.T, c *http.Client, forwardedFor string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+server.RouteAuthLogin,
		strings.NewReader(`{"email":"`+testEmail+`","password":"`+testPassword+`"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, _ := f.send(t, c, req)
	return resp.StatusCode
}

func TestForwardedForIgnoredWithoutTrustedProxy(t *testing.T) {
	t.Setenv("SIGN_IN_RATE_PER_MINUTE", "1")
	t.Setenv("TRUSTED_PROXIES", "")
	f := setupTestFixture(t)

	require.Equal(t, http.StatusOK, f.signInFrom(t, f.newClient(t), "203.0.113.1"))
	require.Equal(t, http.StatusTooManyRequests, f.signInFrom(t, f.newClient(t), "203.0.113.2"))
	require.Equal(t, http.StatusTooManyRequests, f.signInFrom(t, f.newClient(t), "198.51.100.7, 203.0.113.3"))
}

func TestForwardedForHonouredBehindTrustedProxy(t *testing.T) {
	t.Setenv("SIGN_IN_RATE_PER_MINUTE", "1")
	t.Setenv("TRUSTED_PROXIES", "127.0.0.1, ::1")
	f := setupTestFixture(t)

	require.Equal(t, http.StatusOK, f.signInFrom(t, f.newClient(t), "203.0.113.1"))
	require.Equal(t, http.StatusOK, f.signInFrom(t, f.newClient(t), "203.0.113.2"))
	require.Equal(t, http.StatusTooManyRequests, f.signInFrom(t, f.newClient(t), "203.0.113.1"))
	// A spoofed leftmost hop does not escape the limit
	require.Equal(t, http.StatusTooManyRequests, f.signInFrom(t, f.newClient(t), "198.51.100.7, 203.0.113.1"))
}
