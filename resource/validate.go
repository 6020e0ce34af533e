package resource

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError lists the fields of a submission that failed validation
type ValidationError struct {
	Fields map[string]string // field name to message
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return strings.Join(msgs, "; ")
}

// validateField checks the required, date layout and option membership rules
func validateField(f Field, value string) string {
	label := f.Label
	if label == "" {
		label = f.Name
	}

	if f.Required {
		if err := validate.Var(strings.TrimSpace(value), "required"); err != nil {
			return fmt.Sprintf("%s is required", label)
		}
	}
	if value == "" {
		return ""
	}

	switch f.Kind {
	case FieldDate:
		if err := validate.Var(value, "datetime="+DateLayout); err != nil {
			return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", label)
		}
	case FieldSelect:
		if !slices.Contains(f.Options, value) {
			return fmt.Sprintf("%s must be one of: %s", label, strings.Join(f.Options, ", "))
		}
	}
	return ""
}
