package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/status"
)

// Spec wires a Synchronizer to one remote table. Validators and defaults
// are table-specific; everything else is the shared cycle.
type Spec struct {
	// Label names the collection in status messages ("experience").
	Label string
	// Table is the remote table name.
	Table string
	// OwnerColumn scopes every read and write to the principal.
	OwnerColumn string
	// ConflictKey keys upserts: "id" for collections, the owner column for
	// singletons.
	ConflictKey string
	// Columns is the select list; must include "id" and OwnerColumn.
	Columns []string
	// OrderBy orders collection loads; ignored for singletons.
	OrderBy string
	// Singleton marks at-most-one-row-per-principal tables.
	Singleton bool

	// Validate inspects one pending edit before save. Return a
	// *ValidationError to abort the whole save with no writes.
	Validate func(r *Record) *ValidationError
	// Defaults seeds a freshly added pending edit.
	Defaults func() map[string]any
}

// View is the render sink for a synchronizer's record list. The
// synchronizer owns the list; the view only mirrors it.
type View interface {
	Render(records []*Record)
}

// Confirm asks the user to confirm a destructive action.
type Confirm func(label string) bool

// Synchronizer reconciles one owner-scoped table with a local record list.
// Not safe for concurrent use beyond the advisory in-flight flag: like the
// UI it models, calls are expected from one event loop.
type Synchronizer struct {
	spec     Spec
	table    backend.Table
	ownerID  string
	view     View
	reporter status.Reporter
	confirm  Confirm

	records  []*Record
	inFlight atomic.Bool
}

// ErrBusy is returned when a save or delete is already in flight; the
// excess invocation is dropped, not queued.
var ErrBusy = errors.New("operation already in flight")

// New builds a synchronizer for one module. The confirm callback may be nil
// for modules without destructive actions.
func New(spec Spec, table backend.Table, ownerID string, view View, reporter status.Reporter, confirm Confirm) *Synchronizer {
	return &Synchronizer{
		spec:     spec,
		table:    table,
		ownerID:  ownerID,
		view:     view,
		reporter: reporter,
		confirm:  confirm,
	}
}

// Records exposes the current list; callers mutate pending edits through
// Record.Set and never reorder the slice themselves.
func (s *Synchronizer) Records() []*Record { return s.records }

func (s *Synchronizer) render() {
	if s.view != nil {
		s.view.Render(s.records)
	}
}

// Load replaces the local list with the owner's rows. An empty result is
// not an error: it renders as nothing-yet at info severity.
func (s *Synchronizer) Load(ctx context.Context) error {
	status.Reportf(s.reporter, status.Info, "Loading %s…", s.spec.Label)

	q := backend.Query{Columns: s.spec.Columns}.Eq(s.spec.OwnerColumn, s.ownerID)

	var rows []backend.Row
	var err error
	if s.spec.Singleton {
		var row backend.Row
		row, err = s.table.SelectSingle(ctx, q)
		if row != nil {
			rows = []backend.Row{row}
		}
	} else {
		q.OrderBy = s.spec.OrderBy
		q.Ascending = true
		rows, err = s.table.Select(ctx, q)
	}
	if err != nil {
		s.reportLoadError(err)
		return err
	}

	s.records = s.records[:0]
	for _, row := range rows {
		rec := &Record{Fields: map[string]any{}}
		for k, v := range row {
			if k == "id" {
				rec.ID, _ = v.(string)
				continue
			}
			rec.Fields[k] = v
		}
		s.records = append(s.records, rec)
	}
	s.render()

	if len(s.records) == 0 {
		status.Reportf(s.reporter, status.Info, "No %s yet. Add one and save.", s.spec.Label)
		return nil
	}
	status.Reportf(s.reporter, status.Success, "Loaded %s (%d).", s.spec.Label, len(s.records))
	return nil
}

func (s *Synchronizer) reportLoadError(err error) {
	if backend.IsPermissionDenied(err) {
		status.Reportf(s.reporter, status.Error,
			"Access to %s denied by row policy. Check that rows are readable by their owner. Detail: %s",
			s.spec.Table, backend.Stringify(err))
		return
	}
	status.Reportf(s.reporter, status.Error, "Error loading %s: %s", s.spec.Label, backend.Stringify(err))
}

// Add appends one pending edit with default field values and renders it.
// No backend contact.
func (s *Synchronizer) Add() *Record {
	fields := map[string]any{}
	if s.spec.Defaults != nil {
		fields = s.spec.Defaults()
	}
	rec := &Record{Fields: fields}
	s.records = append(s.records, rec)
	s.render()
	status.Reportf(s.reporter, status.Info, "Added %s item. Fill it in and save.", s.spec.Label)
	return rec
}

// Save validates every pending edit, then partitions them into inserts
// (no server id) and upserts (canonical id), issues both batches, and
// reloads so server-assigned identifiers populate the list. Any validation
// failure aborts before the first network call.
func (s *Synchronizer) Save(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	if len(s.records) == 0 {
		status.Reportf(s.reporter, status.Error, "Nothing to save in %s.", s.spec.Label)
		return nil
	}

	status.Reportf(s.reporter, status.Info, "Saving %s…", s.spec.Label)

	// Validate everything first: no partial writes.
	for _, rec := range s.records {
		if s.spec.Validate == nil {
			continue
		}
		if verr := s.spec.Validate(rec); verr != nil {
			status.Reportf(s.reporter, status.Error, "Cannot save %s: %s.", s.spec.Label, verr.Error())
			return verr
		}
	}

	var inserts, upserts []backend.Row
	for _, rec := range s.records {
		row := s.payload(rec)
		if rec.Persisted() {
			row["id"] = rec.ID
			upserts = append(upserts, row)
		} else {
			inserts = append(inserts, row)
		}
	}

	if len(inserts) > 0 {
		if err := s.table.Insert(ctx, inserts); err != nil {
			s.reportSaveError("insert", err)
			return err
		}
	}
	if len(upserts) > 0 {
		if _, err := s.table.Upsert(ctx, upserts, s.spec.ConflictKey); err != nil {
			s.reportSaveError("update", err)
			return err
		}
	}

	if err := s.Load(ctx); err != nil {
		return err
	}
	status.Reportf(s.reporter, status.Success, "Saved %s.", s.spec.Label)
	return nil
}

func (s *Synchronizer) payload(rec *Record) backend.Row {
	row := backend.Row{}
	for k, v := range rec.Fields {
		if k == "created_at" {
			continue // server-owned
		}
		row[k] = v
	}
	row[s.spec.OwnerColumn] = s.ownerID
	return row
}

func (s *Synchronizer) reportSaveError(op string, err error) {
	if backend.IsPermissionDenied(err) {
		status.Reportf(s.reporter, status.Error,
			"Row policy blocked %s on %s. Writes must be scoped to the signed-in user. Detail: %s",
			op, s.spec.Table, backend.Stringify(err))
		return
	}
	status.Reportf(s.reporter, status.Error, "Error saving %s: %s", s.spec.Label, backend.Stringify(err))
}

// Delete removes the record at index. The item leaves the list and the view
// immediately; the remote delete is issued only when the record had a
// server id, scoped by both record id and owner id. A failed remote delete
// is reported but never restores the removed item; the user can reload to
// recover true state.
func (s *Synchronizer) Delete(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("no %s item at %d", s.spec.Label, index)
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	rec := s.records[index]
	if s.confirm != nil && !s.confirm(s.deleteLabel(rec)) {
		return nil
	}

	// UI first.
	s.records = append(s.records[:index], s.records[index+1:]...)
	s.render()

	if !rec.Persisted() {
		status.Reportf(s.reporter, status.Success, "Removed unsaved %s item.", s.spec.Label)
		return nil
	}

	q := backend.Query{}.Eq("id", rec.ID).Eq(s.spec.OwnerColumn, s.ownerID)
	if err := s.table.Delete(ctx, q); err != nil {
		if backend.IsPermissionDenied(err) {
			status.Reportf(s.reporter, status.Error,
				"Row policy blocked delete on %s. Detail: %s", s.spec.Table, backend.Stringify(err))
		} else {
			status.Reportf(s.reporter, status.Error, "Error deleting %s: %s", s.spec.Label, backend.Stringify(err))
		}
		return err
	}

	status.Reportf(s.reporter, status.Success, "Deleted %s item.", s.spec.Label)
	return nil
}

func (s *Synchronizer) deleteLabel(rec *Record) string {
	for _, f := range []string{"name", "company_name", "institution", "skill_name", "language"} {
		if v := rec.Field(f); v != "" {
			return v
		}
	}
	return "this " + s.spec.Label + " item"
}
