package devserver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process Store used by tests and for running the dev
// backend without PostgreSQL.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[string]*User
	tables map[string][]map[string]any
	clock  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  map[string]*User{},
		tables: map[string][]map[string]any{},
	}
}

func (s *MemoryStore) Close() error { return nil }

// Seed injects rows directly, bypassing schema checks on ids. Tests use it
// for reference data.
func (s *MemoryStore) Seed(table string, rows ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], rows...)
}

func (s *MemoryStore) CreateUser(ctx context.Context, email, passwordHash string, meta map[string]string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[email]; exists {
		return nil, ErrDuplicate
	}
	user := &User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash}
	s.users[email] = user

	s.tables["profiles"] = append(s.tables["profiles"], map[string]any{
		"id":               user.ID,
		"email":            email,
		"first_name":       meta["first_name"],
		"middle_name":      meta["middle_name"],
		"last_name":        meta["last_name"],
		"second_last_name": meta["second_last_name"],
		"created_at":       s.stamp(),
	})
	return user, nil
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) Select(ctx context.Context, table string, columns []string, filters []Filter, orderBy string, asc bool) ([]map[string]any, error) {
	schema, ok := schemaFor(table)
	if !ok {
		return nil, ErrNotFound
	}
	cols := sanitizeColumns(schema, columns)

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []map[string]any{}
	for _, row := range s.tables[table] {
		if rowMatches(row, filters) {
			matched = append(matched, row)
		}
	}
	if orderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			a := fmt.Sprint(matched[i][orderBy])
			b := fmt.Sprint(matched[j][orderBy])
			if asc {
				return a < b
			}
			return a > b
		})
	}

	out := make([]map[string]any, 0, len(matched))
	for _, row := range matched {
		projected := map[string]any{}
		for _, c := range cols {
			projected[c] = row[c]
		}
		out = append(out, projected)
	}
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, table string, rows []map[string]any) ([]map[string]any, error) {
	schema, ok := schemaFor(table)
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		stored := s.materialize(schema, row)
		s.tables[table] = append(s.tables[table], stored)
		out = append(out, stored)
	}
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, table string, rows []map[string]any, conflictKey string) ([]map[string]any, error) {
	schema, ok := schemaFor(table)
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		key := fmt.Sprint(row[conflictKey])
		var existing map[string]any
		if row[conflictKey] != nil && key != "" {
			for _, r := range s.tables[table] {
				if fmt.Sprint(r[conflictKey]) == key {
					existing = r
					break
				}
			}
		}
		if existing == nil {
			stored := s.materialize(schema, row)
			s.tables[table] = append(s.tables[table], stored)
			out = append(out, stored)
			continue
		}
		for k, v := range row {
			if k == "id" || k == "created_at" || !schema.hasColumn(k) {
				continue
			}
			existing[k] = v
		}
		out = append(out, existing)
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, table string, filters []Filter) (int64, error) {
	if _, ok := schemaFor(table); !ok {
		return 0, ErrNotFound
	}
	if len(filters) == 0 {
		return 0, fmt.Errorf("unfiltered delete refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tables[table][:0]
	var removed int64
	for _, row := range s.tables[table] {
		if rowMatches(row, filters) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return removed, nil
}

// materialize fills server-owned columns on a new row.
func (s *MemoryStore) materialize(schema tableSchema, row map[string]any) map[string]any {
	stored := map[string]any{}
	for _, c := range schema.Columns {
		if v, ok := row[c]; ok {
			stored[c] = v
		}
	}
	if !schema.IntegerID {
		if id, _ := stored["id"].(string); id == "" {
			stored["id"] = uuid.NewString()
		}
	}
	if schema.hasColumn("created_at") && stored["created_at"] == nil {
		stored["created_at"] = s.stamp()
	}
	return stored
}

// stamp produces strictly increasing timestamps so created_at ordering is
// deterministic even within one test.
func (s *MemoryStore) stamp() string {
	s.clock++
	return time.Unix(1700000000+s.clock, 0).UTC().Format(time.RFC3339)
}

func rowMatches(row map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || fmt.Sprint(v) != f.Value {
			return false
		}
	}
	return true
}
