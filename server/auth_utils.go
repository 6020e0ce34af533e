package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-content-admin/auth"
	"github.com/jrsteele09/go-content-admin/gateway"
)

const (
	// consoleCookieName identifies the browser's console
	consoleCookieName = "console_id"
	// accessTokenCookieName and refreshTokenCookieName let a console restore its session after a restart
	accessTokenCookieName  = "access_token"
	refreshTokenCookieName = "refresh_token"
)

func (s *Server) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	isSecure := getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) SetConsoleCookie(w http.ResponseWriter, r *http.Request, consoleID string) {
	s.setCookie(w, r, consoleCookieName, consoleID, int(s.config.GetMaxConsoleAge()/time.Second))
}

// SetSessionCookies stores the session tokens; the refresh token outlives the access token
func (s *Server) SetSessionCookies(w http.ResponseWriter, r *http.Request, session *gateway.Session) {
	s.setCookie(w, r, accessTokenCookieName, session.AccessToken, int(s.config.GetRefreshTokenExpiry()/time.Second))
	s.setCookie(w, r, refreshTokenCookieName, session.RefreshToken, int(s.config.GetRefreshTokenExpiry()/time.Second))
}

func (s *Server) ClearSessionCookies(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, r, accessTokenCookieName, "", -1)
	s.setCookie(w, r, refreshTokenCookieName, "", -1)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func tokensFromCookies(r *http.Request) auth.Tokens {
	return auth.Tokens{
		AccessToken:  cookieValue(r, accessTokenCookieName),
		RefreshToken: cookieValue(r, refreshTokenCookieName),
	}
}
