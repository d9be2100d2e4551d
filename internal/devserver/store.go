// Package devserver is a development stand-in for the hosted backend: it
// speaks the same HTTP conventions the portal client uses (password auth
// under /auth/v1, table access under /rest/v1) over PostgreSQL, including
// owner-scoped row policy emulation.
package devserver

import (
	"context"
	"errors"
)

// User is one auth account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
}

// Filter is one equality constraint, column = value.
type Filter struct {
	Column string
	Value  string
}

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("already exists")

// Store is the persistence boundary of the dev backend: auth accounts plus
// generic access to the whitelisted portal tables.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string, meta map[string]string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)

	Select(ctx context.Context, table string, columns []string, filters []Filter, orderBy string, asc bool) ([]map[string]any, error)
	Insert(ctx context.Context, table string, rows []map[string]any) ([]map[string]any, error)
	Upsert(ctx context.Context, table string, rows []map[string]any, conflictKey string) ([]map[string]any, error)
	Delete(ctx context.Context, table string, filters []Filter) (int64, error)

	Close() error
}

// tableSchema describes one REST-visible table: its column whitelist, the
// column that scopes rows to their owner, and whether unauthenticated reads
// are allowed (reference data).
type tableSchema struct {
	Columns     []string
	OwnerColumn string
	PublicRead  bool
	// IntegerID marks reference tables with numeric ids; everything else
	// uses uuid ids assigned by the store.
	IntegerID bool
}

// schemas is the whitelist the REST surface exposes. Anything else is 404.
var schemas = map[string]tableSchema{
	"profiles": {
		Columns:     []string{"id", "email", "first_name", "middle_name", "last_name", "second_last_name", "phone", "headline", "created_at"},
		OwnerColumn: "id",
	},
	"candidate_profiles": {
		Columns:     []string{"id", "user_id", "headline", "summary", "phone", "whatsapp", "country_place_id", "state_id", "address", "photo_path", "created_at"},
		OwnerColumn: "user_id",
	},
	"candidate_experiences": {
		Columns:     []string{"id", "user_id", "company_name", "job_title", "employment_type", "start_date", "end_date", "is_current", "location_text", "description", "created_at"},
		OwnerColumn: "user_id",
	},
	"candidate_education": {
		Columns:     []string{"id", "user_id", "institution", "degree", "field_of_study", "start_date", "end_date", "is_current", "description", "created_at"},
		OwnerColumn: "user_id",
	},
	"candidate_certifications": {
		Columns:     []string{"id", "user_id", "name", "issuer", "issue_date", "expiry_date", "credential_url", "attachment_path", "created_at"},
		OwnerColumn: "user_id",
	},
	"candidate_skills": {
		Columns:     []string{"id", "user_id", "skill_name", "created_at"},
		OwnerColumn: "user_id",
	},
	"candidate_languages": {
		Columns:     []string{"id", "user_id", "language", "proficiency", "created_at"},
		OwnerColumn: "user_id",
	},
	"places": {
		Columns:    []string{"id", "name", "type"},
		PublicRead: true,
		IntegerID:  true,
	},
	"states": {
		Columns:    []string{"id", "name", "country_place_id"},
		PublicRead: true,
		IntegerID:  true,
	},
}

func schemaFor(table string) (tableSchema, bool) {
	s, ok := schemas[table]
	return s, ok
}

func (s tableSchema) hasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}
