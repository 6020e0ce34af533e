package resource

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-content-admin/gateway"
)

const (
	// DateLayout is the layout of date inputs
	DateLayout = time.DateOnly

	displayDateLayout = "Jan 2, 2006"
	defaultTruncate   = 60
)

// Cell is one rendered list cell
type Cell struct {
	Text  string `json:"text"`
	Href  string `json:"href,omitempty"`
	Image string `json:"image,omitempty"`
	Badge string `json:"badge,omitempty"`
}

// RenderCell renders the value of column.Field in record
func RenderCell(column Column, record gateway.Record) Cell {
	raw := record.String(column.Field)

	switch column.Format {
	case FormatDate:
		if t, ok := record.Time(column.Field); ok {
			return Cell{Text: t.Format(displayDateLayout)}
		}
	case FormatTruncate:
		return Cell{Text: truncate(raw, column.Width)}
	case FormatLink:
		if raw != "" {
			return Cell{Text: raw, Href: raw}
		}
	case FormatImage:
		if raw != "" {
			return Cell{Image: raw}
		}
	case FormatBadge:
		if raw != "" {
			return Cell{Text: raw, Badge: strings.ToLower(strings.ReplaceAll(raw, " ", "-"))}
		}
	}
	return Cell{Text: raw}
}

func truncate(s string, width int) string {
	if width <= 0 {
		width = defaultTruncate
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return strings.TrimSpace(string(runes[:width])) + "…"
}

// Input is a rendered form control
type Input struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Control     FieldKind `json:"control"`
	Value       string    `json:"value"`
	Required    bool      `json:"required,omitempty"`
	Options     []string  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Accept      string    `json:"accept,omitempty"` // file and image only
	Error       string    `json:"error,omitempty"`
}

// RenderInput renders field with its current value
func RenderInput(field Field, value any) Input {
	in := Input{
		Name:        field.Name,
		Label:       field.Label,
		Control:     field.Kind,
		Required:    field.Required,
		Placeholder: field.Placeholder,
		Value:       inputValue(field, value),
	}
	switch field.Kind {
	case FieldSelect:
		in.Options = append([]string(nil), field.Options...)
	case FieldFile, FieldImage:
		if kind, ok := field.UploadKind(); ok {
			if p, ok := defaultPolicies[kind]; ok {
				in.Accept = strings.Join(p.Extensions, ",")
			}
		}
	case "":
		in.Control = FieldText
	}
	return in
}

func inputValue(field Field, value any) string {
	r := gateway.Record{field.Name: value}
	if field.Kind == FieldDate {
		if t, ok := r.Time(field.Name); ok {
			return t.Format(DateLayout)
		}
	}
	return r.String(field.Name)
}
