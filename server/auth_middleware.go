package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-content-admin/auth"
	apperrors "github.com/jrsteele09/go-content-admin/internal/errors"
	"github.com/jrsteele09/go-content-admin/server/consoles"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyConsole stores the caller's *consoles.Console
	ContextKeyConsole ContextKey = "console"
)

// ResolveConsole finds the caller's console by cookie, or starts a new one.
// A new console restores its session from the token cookies when it can.
func (s *Server) ResolveConsole(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, ok := s.consoles.Get(cookieValue(r, consoleCookieName))
		if !ok {
			console = s.consoles.Create()
			s.SetConsoleCookie(w, r, console.ID)

			tokens := tokensFromCookies(r)
			if console.Auth.Init(r.Context(), tokens) == auth.StateAuthenticated {
				s.SetSessionCookies(w, r, console.Auth.Session())
			} else if tokens.AccessToken != "" || tokens.RefreshToken != "" {
				s.ClearSessionCookies(w, r)
			}
		}

		ctx := context.WithValue(r.Context(), ContextKeyConsole, console)
		next(w, r.WithContext(ctx))
	}
}

func consoleFrom(r *http.Request) (*consoles.Console, error) {
	console, ok := r.Context().Value(ContextKeyConsole).(*consoles.Console)
	if !ok || console == nil {
		return nil, apperrors.ErrConsoleNotFound
	}
	return console, nil
}

// RequireConsoleAuth redirects to the login view unless the console is
// authenticated. Access tokens close to expiry are refreshed on the way through.
func (s *Server) RequireConsoleAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, err := consoleFrom(r)
		if err != nil {
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}
		if console.Auth.State() != auth.StateAuthenticated {
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}

		token, err := console.Auth.AccessToken(r.Context())
		if errors.Is(err, apperrors.ErrNotAuthenticated) {
			console.Reset()
			s.ClearSessionCookies(w, r)
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}
		if err != nil {
			log.Err(err).Str("console_id", console.ID).Msg("failed to refresh session")
			writeError(w, http.StatusBadGateway, "Could not reach the sign-in service. Please try again.")
			return
		}
		if token != cookieValue(r, accessTokenCookieName) {
			if session := console.Auth.Session(); session != nil {
				s.SetSessionCookies(w, r, session)
			}
		}

		next(w, r)
	}
}
