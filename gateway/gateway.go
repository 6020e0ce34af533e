// Package gateway describes the hosted backend the console is built on:
// row storage per named table, bucket-scoped object storage and password
// authentication with pushed session events.
//
// The console never talks to a database, bucket or identity provider
// directly; it is handed implementations of these interfaces.
package gateway

import (
	"context"
	"io"
)

// Tables is row-level CRUD over named tables.
type Tables interface {
	// Select returns the rows of table matching q. Result.Count is only set when q.Count is true.
	Select(ctx context.Context, table string, q Query) (Result, error)
	// Insert stores a new row and returns it with the gateway assigned id and timestamps.
	Insert(ctx context.Context, table string, values Record) (Record, error)
	// Update sets values on the row with the given id and returns the stored row.
	// Extra match filters act as preconditions: when they do not hold ErrConflict is returned.
	Update(ctx context.Context, table, id string, values Record, match ...Filter) (Record, error)
	// Delete removes the row with the given id.
	Delete(ctx context.Context, table, id string) error
}

// Result of a Select
type Result struct {
	Records []Record
	Count   int
}

// Storage is object storage addressed by bucket and path.
type Storage interface {
	Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) error
	PublicURL(bucket, path string) string
	Remove(ctx context.Context, bucket, path string) error
}

// Auth is session based email/password authentication.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetSession(ctx context.Context, accessToken string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error)
	// OnAuthStateChange registers fn for every auth event. The returned func unsubscribes.
	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())
}

// Pinger is implemented by gateway backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
