package resource_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/resource"
	"github.com/stretchr/testify/assert"
)

func TestRenderCell(t *testing.T) {
	record := gateway.Record{
		"title":      "Launch Event",
		"event_date": time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		"published":  "2024-06-01",
		"body":       "The quick brown fox jumps over the lazy dog",
		"url":        "https://example.com/a.pdf",
		"status":     "In Review",
		"count":      42,
		"empty":      nil,
	}

	tests := []struct {
		name   string
		column resource.Column
		want   resource.Cell
	}{
		{"raw", resource.Column{Field: "title"}, resource.Cell{Text: "Launch Event"}},
		{"raw number", resource.Column{Field: "count"}, resource.Cell{Text: "42"}},
		{"raw nil", resource.Column{Field: "empty"}, resource.Cell{}},
		{"missing", resource.Column{Field: "nope", Format: resource.FormatLink}, resource.Cell{}},
		{"date from time", resource.Column{Field: "event_date", Format: resource.FormatDate}, resource.Cell{Text: "Jun 1, 2024"}},
		{"date from string", resource.Column{Field: "published", Format: resource.FormatDate}, resource.Cell{Text: "Jun 1, 2024"}},
		{"date unparseable", resource.Column{Field: "title", Format: resource.FormatDate}, resource.Cell{Text: "Launch Event"}},
		{"truncate", resource.Column{Field: "body", Format: resource.FormatTruncate, Width: 9}, resource.Cell{Text: "The quick…"}},
		{"truncate short", resource.Column{Field: "title", Format: resource.FormatTruncate, Width: 40}, resource.Cell{Text: "Launch Event"}},
		{"link", resource.Column{Field: "url", Format: resource.FormatLink}, resource.Cell{Text: "https://example.com/a.pdf", Href: "https://example.com/a.pdf"}},
		{"image", resource.Column{Field: "url", Format: resource.FormatImage}, resource.Cell{Image: "https://example.com/a.pdf"}},
		{"badge", resource.Column{Field: "status", Format: resource.FormatBadge}, resource.Cell{Text: "In Review", Badge: "in-review"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resource.RenderCell(tt.column, record))
		})
	}
}

func TestRenderInput(t *testing.T) {
	date := resource.RenderInput(resource.Field{Name: "event_date", Label: "Date", Kind: resource.FieldDate, Required: true},
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, resource.FieldDate, date.Control)
	assert.Equal(t, "2024-06-01", date.Value)
	assert.True(t, date.Required)

	sel := resource.RenderInput(resource.Field{Name: "status", Kind: resource.FieldSelect, Options: []string{"draft", "published"}}, "draft")
	assert.Equal(t, resource.FieldSelect, sel.Control)
	assert.Equal(t, []string{"draft", "published"}, sel.Options)
	assert.Equal(t, "draft", sel.Value)

	img := resource.RenderInput(resource.Field{Name: "image_url", Kind: resource.FieldImage}, nil)
	assert.Equal(t, resource.FieldImage, img.Control)
	assert.Contains(t, img.Accept, ".png")
	assert.Empty(t, img.Value)

	plain := resource.RenderInput(resource.Field{Name: "title"}, "x")
	assert.Equal(t, resource.FieldText, plain.Control)
}
