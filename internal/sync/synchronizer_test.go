package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/backendtest"
	"github.com/talenorix/candidate-portal/internal/status"
)

const ownerID = "6f1e1c7e-8a70-4f29-9a53-0a9f4f3c2d11"

type recordingView struct {
	renders int
	last    []*Record
}

func (v *recordingView) Render(records []*Record) {
	v.renders++
	v.last = records
}

func testSpec() Spec {
	return Spec{
		Label:       "experience",
		Table:       "candidate_experiences",
		OwnerColumn: "user_id",
		ConflictKey: "id",
		Columns:     []string{"id", "user_id", "company_name", "created_at"},
		OrderBy:     "created_at",
		Validate: func(r *Record) *ValidationError {
			if r.Field("company_name") == "" {
				return Required("company_name", "company")
			}
			return nil
		},
		Defaults: func() map[string]any {
			return map[string]any{"company_name": ""}
		},
	}
}

func newSyncForTest(t *testing.T, confirm Confirm) (*Synchronizer, *backendtest.FakeTable, *recordingView, *status.Memory) {
	t.Helper()
	fake := backendtest.New()
	table := fake.FakeTable("candidate_experiences")
	view := &recordingView{}
	reporter := &status.Memory{}
	s := New(testSpec(), table, ownerID, view, reporter, confirm)
	return s, table, view, reporter
}

func TestLoad_ScopesToOwnerAndOrders(t *testing.T) {
	s, table, view, _ := newSyncForTest(t, nil)
	table.Seed(
		backend.Row{"user_id": ownerID, "company_name": "Beta"},
		backend.Row{"user_id": "someone-else", "company_name": "Theirs"},
		backend.Row{"user_id": ownerID, "company_name": "Alpha"},
	)

	require.NoError(t, s.Load(context.Background()))
	require.Len(t, s.Records(), 2)
	require.Equal(t, "Beta", s.Records()[0].Field("company_name"))
	require.Equal(t, "Alpha", s.Records()[1].Field("company_name"))
	require.Equal(t, 1, view.renders)

	for _, rec := range s.Records() {
		require.True(t, rec.Persisted())
	}
}

func TestLoad_EmptyIsInfoNotError(t *testing.T) {
	s, _, _, reporter := newSyncForTest(t, nil)

	require.NoError(t, s.Load(context.Background()))
	msg, sev := reporter.Last()
	require.Equal(t, status.Info, sev)
	require.Contains(t, msg, "No experience yet")
}

func TestLoad_PermissionDeniedClassified(t *testing.T) {
	s, table, _, reporter := newSyncForTest(t, nil)
	table.SelectErr = backend.Classify(403, "permission denied for table candidate_experiences")

	err := s.Load(context.Background())
	require.Error(t, err)
	require.True(t, backend.IsPermissionDenied(err))
	msg, sev := reporter.Last()
	require.Equal(t, status.Error, sev)
	require.Contains(t, msg, "row policy")
}

func TestAdd_NoNetworkContact(t *testing.T) {
	s, table, view, _ := newSyncForTest(t, nil)

	rec := s.Add()
	require.NotNil(t, rec)
	require.False(t, rec.Persisted())
	require.Equal(t, 0, table.Mutations())
	require.Equal(t, 1, view.renders)
}

func TestSave_ValidationAbortsBeforeAnyWrite(t *testing.T) {
	s, table, _, reporter := newSyncForTest(t, nil)
	table.Seed(backend.Row{"user_id": ownerID, "company_name": "Kept"})
	require.NoError(t, s.Load(context.Background()))

	good := s.Add()
	good.Set("company_name", "Valid Co")
	s.Add() // invalid: empty company

	err := s.Save(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "company_name", verr.Field)
	require.Equal(t, 0, table.Mutations())

	msg, sev := reporter.Last()
	require.Equal(t, status.Error, sev)
	require.Contains(t, msg, "company")
}

func TestSave_PartitionsInsertAndUpsert(t *testing.T) {
	s, table, _, _ := newSyncForTest(t, nil)
	table.Seed(backend.Row{"user_id": ownerID, "company_name": "Old"})
	require.NoError(t, s.Load(context.Background()))

	s.Records()[0].Set("company_name", "Old Updated")
	added := s.Add()
	added.Set("company_name", "Brand New")

	require.NoError(t, s.Save(context.Background()))
	require.Equal(t, 1, table.Inserts)
	require.Equal(t, 1, table.Upserts)

	// Reload populated server ids on the fresh row.
	require.Len(t, s.Records(), 2)
	for _, rec := range s.Records() {
		require.True(t, rec.Persisted())
		require.Equal(t, ownerID, rec.Field("user_id"))
	}
}

func TestSave_StripsCreatedAtAndInjectsOwner(t *testing.T) {
	s, table, _, _ := newSyncForTest(t, nil)
	rec := s.Add()
	rec.Set("company_name", "Acme")
	rec.Set("created_at", "2001-01-01T00:00:00Z")

	require.NoError(t, s.Save(context.Background()))

	rows := table.Rows()
	require.Len(t, rows, 1)
	require.Equal(t, ownerID, rows[0]["user_id"])
	require.NotEqual(t, "2001-01-01T00:00:00Z", rows[0]["created_at"])
}

func TestSave_SecondInvocationDropped(t *testing.T) {
	s, _, _, _ := newSyncForTest(t, nil)
	s.Add().Set("company_name", "Acme")

	s.inFlight.Store(true)
	require.ErrorIs(t, s.Save(context.Background()), ErrBusy)
	s.inFlight.Store(false)

	require.NoError(t, s.Save(context.Background()))
}

func TestDelete_UnsavedItemSkipsNetwork(t *testing.T) {
	s, table, view, _ := newSyncForTest(t, nil)
	s.Add().Set("company_name", "Draft")
	rendersBefore := view.renders

	require.NoError(t, s.Delete(context.Background(), 0))
	require.Empty(t, s.Records())
	require.Equal(t, 0, table.Mutations())
	require.Greater(t, view.renders, rendersBefore)
}

func TestDelete_SavedItemScopedByIDAndOwner(t *testing.T) {
	s, table, _, _ := newSyncForTest(t, nil)
	table.Seed(backend.Row{"user_id": ownerID, "company_name": "Acme"})
	require.NoError(t, s.Load(context.Background()))
	id := s.Records()[0].ID

	require.NoError(t, s.Delete(context.Background(), 0))
	require.Equal(t, 1, table.Deletes)
	require.Len(t, table.DeletedQueries, 1)

	q := table.DeletedQueries[0]
	require.Len(t, q.Filters, 2)
	require.Equal(t, backend.Filter{Column: "id", Value: id}, q.Filters[0])
	require.Equal(t, backend.Filter{Column: "user_id", Value: ownerID}, q.Filters[1])
}

func TestDelete_FailureNeverRestoresItem(t *testing.T) {
	s, table, view, reporter := newSyncForTest(t, nil)
	table.Seed(backend.Row{"user_id": ownerID, "company_name": "Acme"})
	require.NoError(t, s.Load(context.Background()))
	table.DeleteErr = errors.New("boom")

	err := s.Delete(context.Background(), 0)
	require.Error(t, err)

	// The optimistic removal stands.
	require.Empty(t, s.Records())
	require.Empty(t, view.last)
	_, sev := reporter.Last()
	require.Equal(t, status.Error, sev)
}

func TestDelete_ConfirmDeclinedLeavesEverythingAlone(t *testing.T) {
	declined := func(label string) bool { return false }
	s, table, _, _ := newSyncForTest(t, declined)
	table.Seed(backend.Row{"user_id": ownerID, "company_name": "Acme"})
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.Delete(context.Background(), 0))
	require.Len(t, s.Records(), 1)
	require.Equal(t, 0, table.Deletes)
}

func TestDelete_IndexOutOfRange(t *testing.T) {
	s, _, _, _ := newSyncForTest(t, nil)
	require.Error(t, s.Delete(context.Background(), 5))
}

func TestSingletonLoadUsesSelectSingle(t *testing.T) {
	fake := backendtest.New()
	table := fake.FakeTable("candidate_profiles")
	table.Seed(backend.Row{"user_id": ownerID, "headline": "Engineer"})

	spec := Spec{
		Label:       "profile basics",
		Table:       "candidate_profiles",
		OwnerColumn: "user_id",
		ConflictKey: "user_id",
		Columns:     []string{"id", "user_id", "headline"},
		Singleton:   true,
	}
	s := New(spec, table, ownerID, nil, nil, nil)

	require.NoError(t, s.Load(context.Background()))
	require.Len(t, s.Records(), 1)
	require.Equal(t, "Engineer", s.Records()[0].Field("headline"))

	// Saving the singleton upserts on the owner column.
	require.NoError(t, s.Save(context.Background()))
	require.Equal(t, 1, table.Upserts)
	require.Len(t, table.Rows(), 1)
}
