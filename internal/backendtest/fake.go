// Package backendtest provides an in-memory backend.Client used by tests
// across the client packages. It counts mutating calls so tests can assert
// that a failed validation issued zero network operations.
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talenorix/candidate-portal/internal/backend"
)

// Fake implements backend.Client in memory.
type Fake struct {
	mu sync.Mutex

	ReadyErr   error
	GetUserErr error
	Principal  *backend.Principal
	Session    *backend.Session

	SignOutErr   error
	SignOutDelay time.Duration
	SignOutCalls []backend.SignOutScope

	tables  map[string]*FakeTable
	buckets map[string]*FakeBucket
}

// New returns an empty fake with an authenticated principal.
func New() *Fake {
	p := &backend.Principal{ID: uuid.NewString(), Email: "candidate@example.com"}
	return &Fake{
		Principal: p,
		Session:   &backend.Session{AccessToken: "token", User: p},
		tables:    map[string]*FakeTable{},
		buckets:   map[string]*FakeBucket{},
	}
}

func (f *Fake) Ready(ctx context.Context) error { return f.ReadyErr }
func (f *Fake) Close() error                    { return nil }

func (f *Fake) GetUser(ctx context.Context) (*backend.Principal, error) {
	if f.GetUserErr != nil {
		return nil, f.GetUserErr
	}
	if f.Principal == nil {
		return nil, backend.ErrUnauthenticated
	}
	return f.Principal, nil
}

func (f *Fake) GetSession(ctx context.Context) (*backend.Session, error) {
	if f.Session == nil {
		return nil, backend.ErrUnauthenticated
	}
	return f.Session, nil
}

func (f *Fake) SignInWithPassword(ctx context.Context, email string, password []byte) (*backend.Session, error) {
	if f.Session == nil {
		return nil, backend.ErrUnauthenticated
	}
	return f.Session, nil
}

func (f *Fake) SignUp(ctx context.Context, email string, password []byte, meta map[string]string) (*backend.Principal, error) {
	return &backend.Principal{ID: uuid.NewString(), Email: email}, nil
}

func (f *Fake) SignOut(ctx context.Context, scope backend.SignOutScope) error {
	f.mu.Lock()
	f.SignOutCalls = append(f.SignOutCalls, scope)
	delay := f.SignOutDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.SignOutErr
}

// Table returns the named fake table, creating it on first use.
func (f *Fake) Table(name string) backend.Table {
	return f.FakeTable(name)
}

// FakeTable is Table with the concrete type exposed for assertions.
func (f *Fake) FakeTable(name string) *FakeTable {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[name]
	if !ok {
		t = &FakeTable{name: name}
		f.tables[name] = t
	}
	return t
}

func (f *Fake) Bucket(name string) backend.Storage {
	return f.FakeBucket(name)
}

func (f *Fake) FakeBucket(name string) *FakeBucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[name]
	if !ok {
		b = &FakeBucket{objects: map[string][]byte{}}
		f.buckets[name] = b
	}
	return b
}

// FakeTable stores rows in memory keyed by their "id" field.
type FakeTable struct {
	mu   sync.Mutex
	name string
	rows []backend.Row

	SelectErr error
	InsertErr error
	UpsertErr error
	DeleteErr error

	Inserts int
	Upserts int
	Deletes int

	// DeletedQueries records the filters of each delete call.
	DeletedQueries []backend.Query
}

// Seed replaces the table contents. Rows without an id get one, plus a
// created_at ordinal so ordered selects are deterministic.
func (t *FakeTable) Seed(rows ...backend.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = nil
	for i, r := range rows {
		c := cloneRow(r)
		if needsID(c) {
			c["id"] = uuid.NewString()
		}
		if _, ok := c["created_at"]; !ok {
			c["created_at"] = fmt.Sprintf("2026-01-01T00:00:%02dZ", i)
		}
		t.rows = append(t.rows, c)
	}
}

// Rows returns a copy of the current table contents.
func (t *FakeTable) Rows() []backend.Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]backend.Row, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, cloneRow(r))
	}
	return out
}

func (t *FakeTable) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SelectErr != nil {
		return nil, t.SelectErr
	}
	var out []backend.Row
	for _, r := range t.rows {
		if matches(r, q.Filters) {
			out = append(out, cloneRow(r))
		}
	}
	if q.OrderBy != "" {
		col, asc := q.OrderBy, q.Ascending
		sort.SliceStable(out, func(i, j int) bool {
			a := fmt.Sprint(out[i][col])
			b := fmt.Sprint(out[j][col])
			if asc {
				return a < b
			}
			return a > b
		})
	}
	return out, nil
}

func (t *FakeTable) SelectSingle(ctx context.Context, q backend.Query) (backend.Row, error) {
	rows, err := t.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (t *FakeTable) Insert(ctx context.Context, rows []backend.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.InsertErr != nil {
		return t.InsertErr
	}
	t.Inserts++
	for i, r := range rows {
		c := cloneRow(r)
		if needsID(c) {
			c["id"] = uuid.NewString()
		}
		if _, ok := c["created_at"]; !ok {
			c["created_at"] = fmt.Sprintf("2026-02-01T00:%02d:%02dZ", len(t.rows), i)
		}
		t.rows = append(t.rows, c)
	}
	return nil
}

func (t *FakeTable) Upsert(ctx context.Context, rows []backend.Row, conflictKey string) ([]backend.Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.UpsertErr != nil {
		return nil, t.UpsertErr
	}
	t.Upserts++
	var out []backend.Row
	for _, r := range rows {
		c := cloneRow(r)
		idx := -1
		for i, existing := range t.rows {
			if fmt.Sprint(existing[conflictKey]) == fmt.Sprint(c[conflictKey]) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			merged := cloneRow(t.rows[idx])
			for k, v := range c {
				merged[k] = v
			}
			t.rows[idx] = merged
			out = append(out, cloneRow(merged))
			continue
		}
		if needsID(c) {
			c["id"] = uuid.NewString()
		}
		if _, ok := c["created_at"]; !ok {
			c["created_at"] = fmt.Sprintf("2026-03-01T00:00:%02dZ", len(t.rows))
		}
		t.rows = append(t.rows, c)
		out = append(out, cloneRow(c))
	}
	return out, nil
}

func (t *FakeTable) Delete(ctx context.Context, q backend.Query) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.DeleteErr != nil {
		return t.DeleteErr
	}
	t.Deletes++
	t.DeletedQueries = append(t.DeletedQueries, q)
	kept := t.rows[:0]
	for _, r := range t.rows {
		if !matches(r, q.Filters) {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	return nil
}

// Mutations is the total count of mutating calls.
func (t *FakeTable) Mutations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Inserts + t.Upserts + t.Deletes
}

// needsID reports whether a row is missing a usable identifier. Numeric ids
// (reference data) count as present.
func needsID(r backend.Row) bool {
	v, ok := r["id"]
	if !ok || v == nil {
		return true
	}
	s, isStr := v.(string)
	return isStr && s == ""
}

func matches(r backend.Row, filters []backend.Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(r[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func cloneRow(r backend.Row) backend.Row {
	c := make(backend.Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// FakeBucket is an in-memory backend.Storage.
type FakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte

	UploadErr error
	RemoveErr error
	SignErr   error

	Removed []string
}

func (b *FakeBucket) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.UploadErr != nil {
		return b.UploadErr
	}
	b.objects[key] = append([]byte(nil), body...)
	return nil
}

func (b *FakeBucket) Remove(ctx context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.RemoveErr != nil {
		return b.RemoveErr
	}
	for _, k := range keys {
		delete(b.objects, k)
		b.Removed = append(b.Removed, k)
	}
	return nil
}

func (b *FakeBucket) CreateSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SignErr != nil {
		return "", b.SignErr
	}
	if _, ok := b.objects[key]; !ok {
		return "", backend.ErrNotFound
	}
	return "https://signed.example/" + key, nil
}

// Has reports whether an object exists.
func (b *FakeBucket) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}
