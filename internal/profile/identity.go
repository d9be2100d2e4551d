package profile

import (
	"context"
	"strings"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/status"
)

// Identity is the read-only block sourced from the profiles table. The
// portal never writes these fields; registration owns them.
type Identity struct {
	Email          string
	FirstName      string
	MiddleName     string
	LastName       string
	SecondLastName string
}

// FullName joins the present name parts with single spaces.
func (i Identity) FullName() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{i.FirstName, i.MiddleName, i.LastName, i.SecondLastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// LoadIdentity reads the signed-in user's identity row. A missing row is not
// an error: the caller gets a zero Identity and an info message, matching
// the portal's treatment of accounts created before the profile trigger.
func LoadIdentity(ctx context.Context, client backend.Client, userID string, reporter status.Reporter) (Identity, error) {
	q := backend.Query{
		Columns: []string{"email", "first_name", "middle_name", "last_name", "second_last_name"},
	}.Eq("id", userID)

	row, err := client.Table(TableProfiles).SelectSingle(ctx, q)
	if err != nil {
		status.Reportf(reporter, status.Error, "Error reading identity: %s", backend.Stringify(err))
		return Identity{}, err
	}
	if row == nil {
		status.Reportf(reporter, status.Info, "No identity row yet for this account.")
		return Identity{}, nil
	}

	id := Identity{
		Email:          rowField(row, "email"),
		FirstName:      rowField(row, "first_name"),
		MiddleName:     rowField(row, "middle_name"),
		LastName:       rowField(row, "last_name"),
		SecondLastName: rowField(row, "second_last_name"),
	}
	status.Reportf(reporter, status.Success, "Identity loaded.")
	return id, nil
}

func rowField(r backend.Row, key string) string {
	if v, ok := r[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
