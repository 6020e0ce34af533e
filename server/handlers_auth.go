package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/go-content-admin/auth"
	"github.com/jrsteele09/go-content-admin/gateway"
	apperrors "github.com/jrsteele09/go-content-admin/internal/errors"
	"github.com/jrsteele09/go-content-admin/metrics"
	"github.com/jrsteele09/go-content-admin/users"
	"github.com/rs/zerolog/log"
)

// SessionView is the auth state of a console
type SessionView struct {
	State     auth.State    `json:"state"`
	User      *gateway.User `json:"user,omitempty"`
	ExpiresAt string        `json:"expires_at,omitempty"`
}

// LoginView is what the login page shows
type LoginView struct {
	AppName  string     `json:"app_name"`
	State    auth.State `json:"state"`
	Error    string     `json:"error,omitempty"`
	Attempts []string   `json:"attempts,omitempty"`
}

func sessionView(c *auth.Context) SessionView {
	view := SessionView{State: c.State()}
	if session := c.Session(); session != nil {
		view.User = &session.User
		view.ExpiresAt = session.ExpiresAt.Format(time.RFC3339)
	}
	return view
}

// LoginPageHandler shows the console's auth state together with the error of the last sign-in
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, err := consoleFrom(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		view := LoginView{
			AppName: s.config.GetAppName(),
			State:   console.Auth.State(),
		}
		if lastErr := console.Auth.LastError(); lastErr != nil {
			view.Error = lastErr.Error()
		}
		if attempt := console.Auth.LastAttempt(); attempt.Number > 0 {
			view.Attempts = []string{attempt.String()}
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// LoginHandler signs in with retry. Every attempt is reported as "n/max".
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, err := consoleFrom(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		values, err := readValues(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		view := LoginView{AppName: s.config.GetAppName()}
		_, err = console.Auth.SignInWithRetry(r.Context(), values["email"], values["password"], func(a auth.Attempt) {
			view.Attempts = append(view.Attempts, a.String())
			metrics.RecordSignIn(a.Err)
		})
		view.State = console.Auth.State()

		switch {
		case err == nil:
			console.Reset()
			s.SetSessionCookies(w, r, console.Auth.Session())
			writeJSON(w, http.StatusOK, view)
		case errors.Is(err, auth.ErrMissingEmail), errors.Is(err, auth.ErrMissingPassword):
			view.Error = err.Error()
			writeJSON(w, http.StatusBadRequest, view)
		default:
			log.Info().Str("console_id", console.ID).Strs("attempts", view.Attempts).Err(err).Msg("sign in failed")
			view.Error = err.Error()
			writeJSON(w, http.StatusUnauthorized, view)
		}
	}
}

// LogoutHandler always signs the console out locally and drops its open tables
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, err := consoleFrom(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		console.Auth.SignOut(r.Context())
		console.Reset()
		s.ClearSessionCookies(w, r)
		writeJSON(w, http.StatusOK, sessionView(console.Auth))
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, err := consoleFrom(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		values, err := readValues(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		change := auth.PasswordChange{Password: values["password"], Confirmation: values["confirmation"]}
		if err := change.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := users.ValidatePasswordStrength(change.Password); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		err = console.Auth.ChangePassword(r.Context(), change.Password)
		switch {
		case err == nil:
			if session := console.Auth.Session(); session != nil {
				s.SetSessionCookies(w, r, session)
			}
			writeJSON(w, http.StatusOK, sessionView(console.Auth))
		case errors.Is(err, apperrors.ErrNotAuthenticated):
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		default:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
	}
}

func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, err := consoleFrom(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sessionView(console.Auth))
	}
}
