// Package backend defines the client handle for the hosted portal backend:
// authentication, owner-scoped table access, and object storage. Concrete
// implementations are the REST client (production) and test fakes.
package backend

import (
	"context"
	"time"
)

// Principal is the authenticated end-user. All per-user rows are owned by
// Principal.ID via an owner column the backend enforces with row policies.
type Principal struct {
	ID    string
	Email string
}

// Session holds the token state for an authenticated Principal.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *Principal
}

// SignOutScope selects which sessions a sign-out invalidates.
type SignOutScope string

const (
	SignOutLocal  SignOutScope = "local"
	SignOutGlobal SignOutScope = "global"
)

// Row is one table record as field name → scalar value. A missing or empty
// "id" means the row has not been persisted yet.
type Row map[string]any

// Filter is an equality constraint on one column.
type Filter struct {
	Column string
	Value  any
}

// Query describes a select or delete against one table.
type Query struct {
	Columns   []string
	Filters   []Filter
	OrderBy   string
	Ascending bool
}

// Eq appends an equality filter and returns the query for chaining.
func (q Query) Eq(column string, value any) Query {
	q.Filters = append(q.Filters, Filter{Column: column, Value: value})
	return q
}

// Table is the persistence boundary for one remote table. Every mutating
// call must be scoped to the owner; the backend rejects cross-owner access.
type Table interface {
	// Select returns all matching rows. An empty result is not an error.
	Select(ctx context.Context, q Query) ([]Row, error)
	// SelectSingle returns at most one row, or nil when none matches.
	SelectSingle(ctx context.Context, q Query) (Row, error)
	Insert(ctx context.Context, rows []Row) error
	// Upsert inserts or updates keyed by conflictKey and returns the
	// resulting rows.
	Upsert(ctx context.Context, rows []Row, conflictKey string) ([]Row, error)
	Delete(ctx context.Context, q Query) error
}

// Storage is one object storage bucket.
type Storage interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	Remove(ctx context.Context, keys []string) error
	CreateSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Client is the process-wide backend handle. It is constructed once by the
// composition root and shared read-only; only the sign-out flow mutates its
// session state.
type Client interface {
	// Ready reports whether the handle can serve requests. Returns
	// ErrNotReady until initialization has completed.
	Ready(ctx context.Context) error

	GetUser(ctx context.Context) (*Principal, error)
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email string, password []byte) (*Session, error)
	SignUp(ctx context.Context, email string, password []byte, meta map[string]string) (*Principal, error)
	SignOut(ctx context.Context, scope SignOutScope) error

	Table(name string) Table
	Bucket(name string) Storage

	Close() error
}
