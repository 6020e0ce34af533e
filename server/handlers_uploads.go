package server

import (
	"errors"
	"net/http"

	apperrors "github.com/jrsteele09/go-content-admin/internal/errors"
	"github.com/jrsteele09/go-content-admin/upload"
	"github.com/rs/zerolog/log"
)

const uploadFormField = "file"

// UploadHandler stores a single file outside any form and returns where it lives
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, err := consoleFrom(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		kind, err := upload.ParseKind(r.PathValue("kind"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBody())
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, bodyErrorStatus(err), apperrors.ErrInvalidRequest.Error()+": "+err.Error())
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		f, header, err := r.FormFile(uploadFormField)
		if err != nil {
			writeError(w, http.StatusBadRequest, "a file is required")
			return
		}
		defer f.Close()

		ref, err := console.Uploader.Upload(r.Context(), kind, upload.File{Name: header.Filename, Size: header.Size, Body: f})
		switch {
		case err == nil:
			writeJSON(w, http.StatusCreated, ref)
		case errors.Is(err, upload.ErrEmpty),
			errors.Is(err, upload.ErrTooLarge),
			errors.Is(err, upload.ErrExtensionNotAllowed),
			errors.Is(err, upload.ErrNotAnImage):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			log.Err(err).Str("kind", string(kind)).Msg("upload failed")
			writeError(w, http.StatusBadGateway, err.Error())
		}
	}
}

// maxUploadBody bounds a multipart request to the largest upload allowed
func (s *Server) maxUploadBody() int64 {
	return max(s.config.GetImageMaxBytes(), s.config.GetFileMaxBytes()) + multipartOverhead
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
