package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/resource"
	"github.com/jrsteele09/go-content-admin/server/consoles"
	"github.com/jrsteele09/go-content-admin/upload"
	"github.com/rs/zerolog/log"
)

const (
	maxMultipartMemory = 8 << 20
	multipartOverhead  = 1 << 20 // form values and part headers around the file
)

// TableView is the list view of a table with its open form, if any
type TableView struct {
	Schema      resource.Schema   `json:"schema"`
	Loaded      bool              `json:"loaded"`
	Rows        []resource.Row    `json:"rows"`
	Error       string            `json:"error,omitempty"`
	Modal       *resource.Modal   `json:"modal,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Uploading   bool              `json:"uploading"`
}

// notFoundView is shown for a record that no longer exists
type notFoundView struct {
	Error string `json:"error"`
	Back  string `json:"back"`
}

type deleteView struct {
	Deleted bool `json:"deleted"`
	TableView
}

func tableView(console *consoles.Console, t *resource.Table) TableView {
	return TableView{
		Schema:    t.Schema(),
		Loaded:    t.Loaded(),
		Rows:      t.Rows(),
		Error:     t.Err(),
		Modal:     t.Modal(),
		Uploading: console.Uploader.Uploading(),
	}
}

// consoleTable resolves the console and the {table} of the request, writing
// the error response when either is missing
func consoleTable(w http.ResponseWriter, r *http.Request) (*consoles.Console, *resource.Table, bool) {
	console, err := consoleFrom(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	t, err := console.Table(r.PathValue("table"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, nil, false
	}
	return console, t, true
}

// submitStatus maps a failed submission to its response code
func submitStatus(err error) int {
	var invalid *resource.ValidationError
	switch {
	case errors.As(err, &invalid),
		errors.Is(err, upload.ErrEmpty),
		errors.Is(err, upload.ErrTooLarge),
		errors.Is(err, upload.ErrExtensionNotAllowed),
		errors.Is(err, upload.ErrNotAnImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gateway.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, resource.ErrNoModal):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// CatalogHandler lists the schemas of every managed table
func (s *Server) CatalogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.deps.Catalog.Schemas())
	}
}

// TableHandler loads the table and returns its view. A failed load keeps the
// previously loaded rows.
func (s *Server) TableHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, t, ok := consoleTable(w, r)
		if !ok {
			return
		}

		status := http.StatusOK
		if err := t.Load(r.Context()); err != nil {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, tableView(console, t))
	}
}

func (s *Server) RecordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, t, ok := consoleTable(w, r)
		if !ok {
			return
		}

		record, err := t.Find(r.Context(), r.PathValue("id"))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, record)
		case errors.Is(err, gateway.ErrNotFound):
			writeJSON(w, http.StatusNotFound, notFoundView{
				Error: "This record no longer exists.",
				Back:  "/api/tables/" + t.Schema().Table,
			})
		default:
			log.Err(err).Str("table", t.Schema().Table).Msg("failed to fetch record")
			writeError(w, http.StatusBadGateway, err.Error())
		}
	}
}

func (s *Server) OpenCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, t, ok := consoleTable(w, r)
		if !ok {
			return
		}
		t.OpenCreate()
		writeJSON(w, http.StatusOK, tableView(console, t))
	}
}

func (s *Server) OpenEditHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, t, ok := consoleTable(w, r)
		if !ok {
			return
		}

		err := t.OpenEditByID(r.Context(), r.PathValue("id"))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, tableView(console, t))
		case errors.Is(err, gateway.ErrNotFound):
			writeError(w, http.StatusNotFound, "This record no longer exists.")
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
	}
}

func (s *Server) CloseModalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, t, ok := consoleTable(w, r)
		if !ok {
			return
		}
		t.Close()
		writeJSON(w, http.StatusOK, tableView(console, t))
	}
}

// SubmitHandler saves the open form. Files are accepted as multipart parts
// named after their field.
func (s *Server) SubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, t, ok := consoleTable(w, r)
		if !ok {
			return
		}

		sub, closeFiles, err := readSubmission(w, r, s.maxUploadBody())
		if err != nil {
			writeError(w, bodyErrorStatus(err), err.Error())
			return
		}
		defer closeFiles()

		if err := t.Submit(r.Context(), sub); err != nil {
			view := tableView(console, t)
			var invalid *resource.ValidationError
			if errors.As(err, &invalid) {
				view.FieldErrors = invalid.Fields
			}
			if view.Modal == nil {
				view.Error = err.Error()
			}
			writeJSON(w, submitStatus(err), view)
			return
		}
		writeJSON(w, http.StatusOK, tableView(console, t))
	}
}

// DeleteHandler deletes a record once the caller confirms with confirm=true
func (s *Server) DeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		console, t, ok := consoleTable(w, r)
		if !ok {
			return
		}

		confirmed := r.URL.Query().Get("confirm") == "true"
		deleted, err := t.Delete(r.Context(), r.PathValue("id"), func() bool { return confirmed })

		status := http.StatusOK
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			status = http.StatusNotFound
		case err != nil:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, deleteView{Deleted: deleted, TableView: tableView(console, t)})
	}
}

func readSubmission(w http.ResponseWriter, r *http.Request, limit int64) (resource.Submission, func(), error) {
	sub := resource.Submission{}
	noop := func() {}

	if mediaType(r) != "multipart/form-data" {
		values, err := readValues(r)
		if err != nil {
			return sub, noop, err
		}
		sub.Values = values
		return sub, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return sub, noop, err
	}
	sub.Values = make(map[string]string, len(r.MultipartForm.Value))
	for name, vals := range r.MultipartForm.Value {
		if len(vals) > 0 {
			sub.Values[name] = vals[0]
		}
	}

	var opened []io.Closer
	closeFiles := func() {
		for _, c := range opened {
			_ = c.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	sub.Files = make(map[string]upload.File, len(r.MultipartForm.File))
	for name, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			closeFiles()
			return sub, noop, err
		}
		opened = append(opened, f)
		sub.Files[name] = upload.File{Name: headers[0].Filename, Size: headers[0].Size, Body: f}
	}
	return sub, closeFiles, nil
}
