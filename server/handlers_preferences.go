package server

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

type darkModeView struct {
	DarkMode bool `json:"dark_mode"`
}

func (s *Server) GetDarkModeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, err := consoleFrom(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		enabled, err := s.deps.Preferences.DarkMode(r.Context(), console.ID)
		if err != nil {
			// An unreadable preference falls back to light mode
			log.Err(err).Str("console_id", console.ID).Msg("failed to read dark mode")
		}
		writeJSON(w, http.StatusOK, darkModeView{DarkMode: enabled})
	}
}

// SetDarkModeHandler accepts {"dark_mode": true} or a form value
func (s *Server) SetDarkModeHandler() http.HandlerFunc {
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
		enabled, err := strconv.ParseBool(values["dark_mode"])
		if err != nil {
			writeError(w, http.StatusBadRequest, "dark_mode must be true or false")
			return
		}

		if err := s.deps.Preferences.SetDarkMode(r.Context(), console.ID, enabled); err != nil {
			log.Err(err).Str("console_id", console.ID).Msg("failed to store dark mode")
			writeError(w, http.StatusBadGateway, "Could not save the preference.")
			return
		}
		writeJSON(w, http.StatusOK, darkModeView{DarkMode: enabled})
	}
}
