package resource

import "github.com/jrsteele09/go-content-admin/upload"

// FieldKind selects the input control of a form field
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldDate     FieldKind = "date"
	FieldSelect   FieldKind = "select"
	FieldFile     FieldKind = "file"
	FieldImage    FieldKind = "image"
)

// Field describes one input of the create/edit form
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Required    bool      `json:"required,omitempty"`
	Options     []string  `json:"options,omitempty"` // FieldSelect only
	Placeholder string    `json:"placeholder,omitempty"`
}

// UploadKind reports the upload kind of file and image fields
func (f Field) UploadKind() (upload.Kind, bool) {
	switch f.Kind {
	case FieldImage:
		return upload.KindImage, true
	case FieldFile:
		return upload.KindFile, true
	}
	return "", false
}

// ColumnFormat overrides how a list cell is rendered
type ColumnFormat string

const (
	FormatRaw      ColumnFormat = ""
	FormatDate     ColumnFormat = "date"
	FormatTruncate ColumnFormat = "truncate"
	FormatLink     ColumnFormat = "link"
	FormatImage    ColumnFormat = "image"
	FormatBadge    ColumnFormat = "badge"
)

// Column describes one column of the list view
type Column struct {
	Field  string       `json:"field"`
	Label  string       `json:"label"`
	Format ColumnFormat `json:"format,omitempty"`
	Width  int          `json:"width,omitempty"` // FormatTruncate, in characters
}
