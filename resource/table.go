// Package resource is the generic CRUD manager behind every content table
// of the console: a schema describes the columns and form fields and a Table
// drives list, create, edit and delete against the gateway.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/upload"
	"github.com/rs/zerolog/log"
)

var ErrNoModal = errors.New("no form is open")

// ModalMode tells whether the form creates or edits a record
type ModalMode string

const (
	ModeCreate ModalMode = "create"
	ModeEdit   ModalMode = "edit"
)

// Modal is the create/edit form
type Modal struct {
	Mode     ModalMode      `json:"mode"`
	RecordID string         `json:"record_id,omitempty"`
	Inputs   []Input        `json:"inputs"`
	Error    string         `json:"error,omitempty"`
	record   gateway.Record // values the form was opened with
}

// Submission holds the values of a submitted form. On edit, fields missing
// from Values are left unchanged.
type Submission struct {
	Values map[string]string
	Files  map[string]upload.File
}

// Row is one rendered line of the list view
type Row struct {
	ID    string `json:"id"`
	Cells []Cell `json:"cells"`
}

// Table is the list and form state of one table for one console
type Table struct {
	schema   Schema
	tables   gateway.Tables
	uploader *upload.Uploader

	nowTime func() time.Time

	lock    sync.Mutex
	records []gateway.Record
	loaded  bool
	err     string
	modal   *Modal
}

func NewTable(schema Schema, tables gateway.Tables, uploader *upload.Uploader) *Table {
	return &Table{
		schema:   schema,
		tables:   tables,
		uploader: uploader,
		nowTime:  time.Now,
	}
}

// WithNowTime replaces the clock used to stamp the precondition column (primarily for testing)
func (t *Table) WithNowTime(now func() time.Time) *Table {
	t.nowTime = now
	return t
}

func (t *Table) Schema() Schema {
	return t.schema
}

// Load fetches every row, newest first. On failure the previous rows are kept
// and Err is set.
func (t *Table) Load(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.load(ctx)
}

func (t *Table) load(ctx context.Context) error {
	result, err := t.tables.Select(ctx, t.schema.Table, gateway.Query{}.OrderBy(t.schema.orderBy(), false))
	if err != nil {
		t.err = message(err)
		log.Err(err).Str("table", t.schema.Table).Msg("failed to load records")
		return err
	}
	t.records = result.Records
	t.loaded = true
	t.err = ""
	return nil
}

// Loaded reports whether a Load has succeeded
func (t *Table) Loaded() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.loaded
}

// Err is the message of the last failed list operation
func (t *Table) Err() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.err
}

func (t *Table) Records() []gateway.Record {
	t.lock.Lock()
	defer t.lock.Unlock()

	records := make([]gateway.Record, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, r.Clone())
	}
	return records
}

// Rows renders the loaded records with the schema columns
func (t *Table) Rows() []Row {
	t.lock.Lock()
	defer t.lock.Unlock()

	rows := make([]Row, 0, len(t.records))
	for _, r := range t.records {
		cells := make([]Cell, 0, len(t.schema.Columns))
		for _, c := range t.schema.Columns {
			cells = append(cells, RenderCell(c, r))
		}
		rows = append(rows, Row{ID: r.ID(), Cells: cells})
	}
	return rows
}

// OpenCreate opens an empty form
func (t *Table) OpenCreate() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.modal = &Modal{Mode: ModeCreate, record: gateway.Record{}}
}

// OpenEdit opens the form with the values of record
func (t *Table) OpenEdit(record gateway.Record) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.modal = &Modal{Mode: ModeEdit, RecordID: record.ID(), record: record.Clone()}
}

// OpenEditByID opens the form for a loaded record, fetching it when needed
func (t *Table) OpenEditByID(ctx context.Context, id string) error {
	t.lock.Lock()
	for _, r := range t.records {
		if r.ID() == id {
			t.modal = &Modal{Mode: ModeEdit, RecordID: id, record: r.Clone()}
			t.lock.Unlock()
			return nil
		}
	}
	t.lock.Unlock()

	record, err := t.Find(ctx, id)
	if err != nil {
		return err
	}
	t.OpenEdit(record)
	return nil
}

func (t *Table) Close() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.modal = nil
}

// Modal returns the open form with its inputs rendered, or nil
func (t *Table) Modal() *Modal {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.modal == nil {
		return nil
	}
	m := *t.modal
	m.Inputs = make([]Input, 0, len(t.schema.Fields))
	for _, f := range t.schema.Fields {
		m.Inputs = append(m.Inputs, RenderInput(f, t.modal.record[f.Name]))
	}
	return &m
}

// Submit validates the form, uploads pending files and then inserts or
// updates the record. On success the form closes and the list reloads. On
// failure the form stays open with its error set, and objects uploaded for
// this submission are removed again.
func (t *Table) Submit(ctx context.Context, sub Submission) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	modal := t.modal
	if modal == nil {
		return ErrNoModal
	}

	values, err := t.collect(modal, sub)
	if err != nil {
		modal.Error = err.Error()
		return err
	}

	refs, err := t.uploadFiles(ctx, sub.Files)
	if err != nil {
		modal.Error = err.Error()
		return err
	}
	for name, ref := range refs {
		values[name] = ref.URL
	}

	if err := t.write(ctx, modal, values); err != nil {
		t.discard(refs)
		modal.Error = message(err)
		return err
	}

	t.modal = nil
	if err := t.load(ctx); err != nil {
		log.Warn().Str("table", t.schema.Table).Msg("saved, but reload failed")
	}
	return nil
}

// collect validates the submission and returns the values to write: every
// non-empty value on create, only changed values on edit.
func (t *Table) collect(modal *Modal, sub Submission) (gateway.Record, error) {
	values := gateway.Record{}
	invalid := map[string]string{}

	for _, f := range t.schema.Fields {
		current := inputValue(f, modal.record[f.Name])

		if kind, isUpload := f.UploadKind(); isUpload {
			file, picked := sub.Files[f.Name]
			if picked {
				if err := t.uploader.Validate(kind, file); err != nil {
					invalid[f.Name] = fmt.Sprintf("%s: %v", f.Label, err)
				}
				continue
			}
			submitted, ok := sub.Values[f.Name]
			if !ok {
				submitted = current
			}
			if msg := validateField(f, submitted); msg != "" {
				invalid[f.Name] = msg
			}
			if submitted != current {
				values[f.Name] = nullable(submitted)
			}
			continue
		}

		submitted, ok := sub.Values[f.Name]
		if !ok {
			submitted = current
		}
		if msg := validateField(f, submitted); msg != "" {
			invalid[f.Name] = msg
			continue
		}

		switch modal.Mode {
		case ModeCreate:
			if submitted != "" {
				values[f.Name] = submitted
			}
		case ModeEdit:
			if submitted != current {
				values[f.Name] = nullable(submitted)
			}
		}
	}

	if len(invalid) > 0 {
		return nil, &ValidationError{Fields: invalid}
	}
	return values, nil
}

func (t *Table) uploadFiles(ctx context.Context, files map[string]upload.File) (map[string]upload.Ref, error) {
	refs := make(map[string]upload.Ref, len(files))
	for _, f := range t.schema.Fields {
		file, ok := files[f.Name]
		if !ok {
			continue
		}
		kind, isUpload := f.UploadKind()
		if !isUpload {
			continue
		}
		ref, err := t.uploader.Upload(ctx, kind, file)
		if err != nil {
			t.discard(refs)
			return nil, err
		}
		refs[f.Name] = ref
	}
	return refs, nil
}

// write inserts or updates the record. With a precondition column every
// write stamps it, and an update only applies while it still holds the
// value the form was opened with.
func (t *Table) write(ctx context.Context, modal *Modal, values gateway.Record) error {
	col := t.schema.PreconditionColumn

	if modal.Mode == ModeCreate {
		if col != "" {
			values[col] = t.stamp(nil)
		}
		_, err := t.tables.Insert(ctx, t.schema.Table, values)
		return err
	}
	if len(values) == 0 {
		return nil
	}

	var match []gateway.Filter
	if col != "" {
		loaded, ok := modal.record.Time(col)
		if ok {
			match = append(match, gateway.Filter{Column: col, Value: modal.record[col]})
			values[col] = t.stamp(&loaded)
		} else {
			values[col] = t.stamp(nil)
		}
	}
	_, err := t.tables.Update(ctx, t.schema.Table, modal.RecordID, values, match...)
	return err
}

// stamp is the new value of the precondition column. It always moves past
// the loaded value so a write is visible even within one clock tick.
func (t *Table) stamp(loaded *time.Time) time.Time {
	now := t.nowTime().UTC().Truncate(time.Microsecond)
	if loaded != nil && !now.After(*loaded) {
		now = loaded.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

func (t *Table) discard(refs map[string]upload.Ref) {
	for _, ref := range refs {
		// The request context may already be cancelled
		if err := t.uploader.Discard(context.Background(), ref); err != nil {
			log.Err(err).Str("bucket", ref.Bucket).Str("path", ref.Path).Msg("failed to remove orphaned upload")
		}
	}
}

// Delete removes the record after confirm returns true. It reports whether
// the record was deleted.
func (t *Table) Delete(ctx context.Context, id string, confirm func() bool) (bool, error) {
	if confirm == nil || !confirm() {
		return false, nil
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if err := t.tables.Delete(ctx, t.schema.Table, id); err != nil {
		t.err = message(err)
		return false, err
	}
	if err := t.load(ctx); err != nil {
		log.Warn().Str("table", t.schema.Table).Msg("deleted, but reload failed")
	}
	return true, nil
}

// Find fetches a single record. A missing record is gateway.ErrNotFound.
func (t *Table) Find(ctx context.Context, id string) (gateway.Record, error) {
	result, err := t.tables.Select(ctx, t.schema.Table, gateway.Query{}.Eq(gateway.ColumnID, id).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, gateway.ErrNotFound
	}
	return result.Records[0], nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// message turns a gateway error into text for the person using the console
func message(err error) string {
	switch {
	case errors.Is(err, gateway.ErrConflict):
		return "This record was changed by someone else. Reload it and try again."
	case errors.Is(err, gateway.ErrNotFound):
		return "This record no longer exists."
	case errors.Is(err, gateway.ErrUnknownTable):
		return "This table is not available."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	default:
		return err.Error()
	}
}
