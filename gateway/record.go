package gateway

import (
	"fmt"
	"maps"
	"time"
)

const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
)

// Record is one row of a table: column name to scalar or text value.
type Record map[string]any

// ID returns the gateway assigned identifier, or "" for unsaved records.
func (r Record) ID() string {
	return r.String(ColumnID)
}

// String formats the value of field, "" when absent or nil.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Time returns field as a time when it holds one (or an RFC3339 / date string).
func (r Record) Time(field string) (time.Time, bool) {
	switch t := r[field].(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}
