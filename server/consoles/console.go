// Package consoles keeps the state of every browser using the admin console:
// its Auth Context and the resource tables it has open.
package consoles

import (
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-content-admin/auth"
	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/resource"
	"github.com/jrsteele09/go-content-admin/upload"
)

// Console is the server side state of one browser
type Console struct {
	ID        string
	Auth      *auth.Context
	Uploader  *upload.Uploader
	CreatedAt time.Time

	catalog resource.Catalog
	tables  gateway.Tables

	lock     sync.Mutex
	open     map[string]*resource.Table
	lastSeen time.Time
}

func New(id string, authCtx *auth.Context, tables gateway.Tables, uploader *upload.Uploader, catalog resource.Catalog) *Console {
	now := time.Now()
	return &Console{
		ID:        id,
		Auth:      authCtx,
		Uploader:  uploader,
		CreatedAt: now,
		catalog:   catalog,
		tables:    tables,
		open:      make(map[string]*resource.Table),
		lastSeen:  now,
	}
}

// Table returns the controller of a catalog table, creating it on first use
func (c *Console) Table(name string) (*resource.Table, error) {
	schema, ok := c.catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownTable, name)
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	t, ok := c.open[name]
	if !ok {
		t = resource.NewTable(schema, c.tables, c.Uploader)
		c.open[name] = t
	}
	return t, nil
}

// Reset drops every open table, e.g. after sign-out
func (c *Console) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.open = make(map[string]*resource.Table)
}

func (c *Console) touch(now time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.lastSeen = now
}

func (c *Console) idleSince() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lastSeen
}
