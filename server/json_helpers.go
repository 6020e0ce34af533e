package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	apperrors "github.com/jrsteele09/go-content-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// readValues reads a flat set of string values from a JSON object or a form
func readValues(r *http.Request) (map[string]string, error) {
	values := map[string]string{}

	switch mediaType(r) {
	case "application/json":
		body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
		}
		if len(body) == 0 {
			return values, nil
		}
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
		}
		for k, v := range raw {
			switch tv := v.(type) {
			case nil:
				values[k] = ""
			case string:
				values[k] = tv
			default:
				values[k] = fmt.Sprint(tv)
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
		}
		for k := range r.PostForm {
			values[k] = r.PostForm.Get(k)
		}
	}
	return values, nil
}
