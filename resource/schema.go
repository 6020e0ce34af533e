package resource

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/upload"
)

var defaultPolicies = upload.DefaultPolicies()

// Schema is everything the console needs to manage one table
type Schema struct {
	Table   string   `json:"table"`
	Title   string   `json:"title"`
	OrderBy string   `json:"order_by"` // Descending. Defaults to created_at
	Columns []Column `json:"columns"`
	Fields  []Field  `json:"fields"`
	// PreconditionColumn, when set, must still hold the loaded value for an
	// update to succeed. Without it the last write wins.
	PreconditionColumn string `json:"precondition_column,omitempty"`
}

func (s Schema) orderBy() string {
	if s.OrderBy == "" {
		return gateway.ColumnCreatedAt
	}
	return s.OrderBy
}

// Check reports configuration mistakes in the schema
func (s Schema) Check() error {
	if s.Table == "" {
		return errors.New("schema has no table")
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" || f.Name == gateway.ColumnID {
			return fmt.Errorf("%s: invalid field name %q", s.Table, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %q", s.Table, f.Name)
		}
		seen[f.Name] = true
		if f.Kind == FieldSelect && len(f.Options) == 0 {
			return fmt.Errorf("%s: select field %q has no options", s.Table, f.Name)
		}
	}
	return nil
}
