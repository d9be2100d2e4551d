// Package sync implements the generic load/render/edit/save/delete cycle
// shared by every feature module: one remote table scoped by owner id, a
// local list of pending edits, optimistic delete, and insert-versus-upsert
// partitioning keyed on identifier shape.
package sync

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Record is one row held by the synchronizer. Fields is the local, possibly
// unsaved copy of the row ("pending edit"); ID is the server-assigned
// identifier, empty until the first successful save round-trips.
type Record struct {
	ID     string
	Fields map[string]any
}

// Field returns the field rendered as a trimmed string, "" when absent.
func (r *Record) Field(name string) string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Set mutates one pending field in place. Pure local state change.
func (r *Record) Set(name string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[name] = value
}

// Persisted reports whether the record carries a server identifier. Only a
// canonically shaped identifier counts; anything else is treated as new so
// a mangled id can never turn an insert into a bogus upsert.
func (r *Record) Persisted() bool {
	return LooksLikeID(r.ID)
}

// LooksLikeID reports whether s has the canonical unique-identifier shape
// (32 hex digits in grouped form).
func LooksLikeID(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidationError names the field and rule a pending edit violated. Save
// aborts with zero writes when any edit fails validation.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// Required is the standard missing-field violation.
func Required(field, label string) *ValidationError {
	return &ValidationError{Field: field, Detail: label + " is required"}
}

// MaxLen checks one string field against a limit.
func MaxLen(r *Record, field, label string, limit int) *ValidationError {
	if len(r.Field(field)) > limit {
		return &ValidationError{
			Field:  field,
			Detail: fmt.Sprintf("%s exceeds %d characters", label, limit),
		}
	}
	return nil
}
