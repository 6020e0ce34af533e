package resource

import (
	"fmt"
	"sort"
)

// Catalog is the set of schemas the console manages, keyed by table name
type Catalog map[string]Schema

// DefaultCatalog returns the content tables of the site
func DefaultCatalog() Catalog {
	return NewCatalog(
		Schema{
			Table:   "events",
			Title:   "Events",
			OrderBy: "created_at",
			Columns: []Column{
				{Field: "title", Label: "Title"},
				{Field: "event_date", Label: "Date", Format: FormatDate},
				{Field: "location", Label: "Location"},
				{Field: "image_url", Label: "Image", Format: FormatImage},
			},
			Fields: []Field{
				{Name: "title", Label: "Title", Kind: FieldText, Required: true},
				{Name: "event_date", Label: "Date", Kind: FieldDate, Required: true},
				{Name: "location", Label: "Location", Kind: FieldText, Placeholder: "City or Remote"},
				{Name: "description", Label: "Description", Kind: FieldTextarea},
				{Name: "image_url", Label: "Image", Kind: FieldImage},
			},
		},
		Schema{
			Table: "resources",
			Title: "Resources",
			Columns: []Column{
				{Field: "title", Label: "Title"},
				{Field: "category", Label: "Category", Format: FormatBadge},
				{Field: "description", Label: "Description", Format: FormatTruncate, Width: 80},
				{Field: "file_url", Label: "File", Format: FormatLink},
			},
			Fields: []Field{
				{Name: "title", Label: "Title", Kind: FieldText, Required: true},
				{Name: "category", Label: "Category", Kind: FieldSelect, Required: true, Options: []string{"Guide", "Report", "Template", "Presentation"}},
				{Name: "description", Label: "Description", Kind: FieldTextarea},
				{Name: "file_url", Label: "File", Kind: FieldFile},
			},
		},
		Schema{
			Table: "blog_posts",
			Title: "Blog Posts",
			Columns: []Column{
				{Field: "title", Label: "Title"},
				{Field: "author", Label: "Author"},
				{Field: "status", Label: "Status", Format: FormatBadge},
				{Field: "created_at", Label: "Created", Format: FormatDate},
			},
			Fields: []Field{
				{Name: "title", Label: "Title", Kind: FieldText, Required: true},
				{Name: "author", Label: "Author", Kind: FieldText},
				{Name: "status", Label: "Status", Kind: FieldSelect, Required: true, Options: []string{"draft", "published"}},
				{Name: "excerpt", Label: "Excerpt", Kind: FieldTextarea},
				{Name: "content", Label: "Content", Kind: FieldTextarea, Required: true},
				{Name: "cover_image", Label: "Cover image", Kind: FieldImage},
			},
			PreconditionColumn: "updated_at",
		},
		Schema{
			Table: "contact_messages",
			Title: "Contact Messages",
			Columns: []Column{
				{Field: "name", Label: "Name"},
				{Field: "email", Label: "Email"},
				{Field: "subject", Label: "Subject"},
				{Field: "message", Label: "Message", Format: FormatTruncate, Width: 60},
				{Field: "created_at", Label: "Received", Format: FormatDate},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: FieldText, Required: true},
				{Name: "email", Label: "Email", Kind: FieldText, Required: true},
				{Name: "subject", Label: "Subject", Kind: FieldText},
				{Name: "message", Label: "Message", Kind: FieldTextarea, Required: true},
				{Name: "status", Label: "Status", Kind: FieldSelect, Options: []string{"new", "read", "archived"}},
			},
		},
	)
}

func NewCatalog(schemas ...Schema) Catalog {
	c := make(Catalog, len(schemas))
	for _, s := range schemas {
		c[s.Table] = s
	}
	return c
}

// Check validates every schema
func (c Catalog) Check() error {
	for name, s := range c {
		if name != s.Table {
			return fmt.Errorf("catalog key %q does not match table %q", name, s.Table)
		}
		if err := s.Check(); err != nil {
			return err
		}
	}
	return nil
}

// Tables returns the table names, sorted
func (c Catalog) Tables() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas returns the schemas sorted by table name
func (c Catalog) Schemas() []Schema {
	schemas := make([]Schema, 0, len(c))
	for _, name := range c.Tables() {
		schemas = append(schemas, c[name])
	}
	return schemas
}
