package profile

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/selector"
	"github.com/talenorix/candidate-portal/internal/status"
	"github.com/talenorix/candidate-portal/internal/sync"
)

// MaxAddressLen caps the free-text address column.
const MaxAddressLen = 240

// Location edits the country/state/address slice of the candidate_profiles
// singleton. Countries come from the public places table (type=country);
// states cascade from the chosen country through a race-safe selector.
type Location struct {
	client   backend.Client
	userID   string
	reporter status.Reporter

	Countries []selector.Option
	States    *selector.Cascade

	Address string

	saving atomic.Bool
}

// NewLocation builds the module. Call Load before use.
func NewLocation(client backend.Client, userID string, reporter status.Reporter) *Location {
	l := &Location{client: client, userID: userID, reporter: reporter}
	l.States = selector.New("states",
		selector.TableLoader(client.Table(TableStates), "country_place_id"), reporter)
	return l
}

// Load fetches the country list and the user's saved location, then primes
// the state cascade with the saved country and pre-selects the saved state.
func (l *Location) Load(ctx context.Context) error {
	q := backend.Query{
		Columns:   []string{"id", "name", "type"},
		OrderBy:   "name",
		Ascending: true,
	}.Eq("type", "country")

	rows, err := l.client.Table(TablePlaces).Select(ctx, q)
	if err != nil {
		if backend.IsPermissionDenied(err) {
			status.Reportf(l.reporter, status.Error,
				"Row policy blocked reading places; countries must be publicly readable. Detail: %s",
				backend.Stringify(err))
		} else {
			status.Reportf(l.reporter, status.Error, "Error loading countries: %s", backend.Stringify(err))
		}
		return err
	}
	l.Countries = l.Countries[:0]
	for _, r := range rows {
		l.Countries = append(l.Countries, selector.Option{
			Value: optionValue(r, "id"),
			Label: optionValue(r, "name"),
		})
	}

	saved, err := l.client.Table(TableCandidate).SelectSingle(ctx, backend.Query{
		Columns: []string{"country_place_id", "state_id", "address"},
	}.Eq("user_id", l.userID))
	if err != nil {
		status.Reportf(l.reporter, status.Error, "Error loading location: %s", backend.Stringify(err))
		return err
	}
	if saved == nil {
		status.Reportf(l.reporter, status.Info, "No location saved yet.")
		return nil
	}

	l.Address = optionValue(saved, "address")
	country := optionValue(saved, "country_place_id")
	state := optionValue(saved, "state_id")
	if err := l.States.OnParentChange(ctx, country, state); err != nil {
		return err
	}
	status.Reportf(l.reporter, status.Success, "Location loaded.")
	return nil
}

// SelectCountry reacts to a country change: the state list clears, disables,
// and refetches for the new country.
func (l *Location) SelectCountry(ctx context.Context, countryID string) error {
	return l.States.OnParentChange(ctx, countryID, "")
}

// Save upserts the location slice onto the singleton row, keyed by owner.
// Country is mandatory; state and address may be empty and are stored as
// null.
func (l *Location) Save(ctx context.Context, countryID, stateID, address string) error {
	if !l.saving.CompareAndSwap(false, true) {
		return nil
	}
	defer l.saving.Store(false)

	if countryID == "" {
		status.Reportf(l.reporter, status.Error, "Select a country before saving.")
		return &sync.ValidationError{Field: "country_place_id", Detail: "country is required"}
	}
	if len(address) > MaxAddressLen {
		status.Reportf(l.reporter, status.Error, "Address exceeds %d characters.", MaxAddressLen)
		return &sync.ValidationError{Field: "address", Detail: "address too long"}
	}

	row := backend.Row{
		"user_id":          l.userID,
		"country_place_id": countryID,
		"state_id":         nullable(stateID),
		"address":          nullable(address),
	}
	if _, err := l.client.Table(TableCandidate).Upsert(ctx, []backend.Row{row}, "user_id"); err != nil {
		if backend.IsPermissionDenied(err) {
			status.Reportf(l.reporter, status.Error,
				"Row policy blocked the location write; writes must be scoped to the owner. Detail: %s",
				backend.Stringify(err))
		} else {
			status.Reportf(l.reporter, status.Error, "Error saving location: %s", backend.Stringify(err))
		}
		return err
	}

	l.Address = address
	status.Reportf(l.reporter, status.Success, "Location saved.")
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionValue(r backend.Row, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
