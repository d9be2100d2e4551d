package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/backendtest"
	"github.com/talenorix/candidate-portal/internal/status"
)

func TestOnParentChange_LoadsAndEnables(t *testing.T) {
	load := func(ctx context.Context, parent string) ([]Option, error) {
		require.Equal(t, "1", parent)
		return []Option{{Value: "101", Label: "Antioquia"}}, nil
	}
	c := New("states", load, nil)

	require.NoError(t, c.OnParentChange(context.Background(), "1", ""))
	require.True(t, c.Enabled())
	require.Equal(t, []Option{{Value: "101", Label: "Antioquia"}}, c.Options())
}

func TestOnParentChange_EmptyParentClearsAndDisables(t *testing.T) {
	c := New("states", func(ctx context.Context, parent string) ([]Option, error) {
		t.Fatal("loader must not run for an empty parent")
		return nil, nil
	}, &status.Memory{})

	c.options = []Option{{Value: "101", Label: "Antioquia"}}
	c.selected = "101"
	c.enabled = true

	require.NoError(t, c.OnParentChange(context.Background(), "", ""))
	require.False(t, c.Enabled())
	require.Empty(t, c.Options())
	require.Equal(t, "", c.Selected())
}

func TestOnParentChange_StaleResponseDiscarded(t *testing.T) {
	// The first fetch is still "in flight" when the second parent change
	// happens; its late response must not clobber the newer options.
	c := New("states", nil, nil)

	c.load = func(ctx context.Context, parent string) ([]Option, error) {
		if parent == "1" {
			// Simulate a slow response by issuing the newer change from
			// inside the older one's loader.
			c.load = func(ctx context.Context, parent string) ([]Option, error) {
				return []Option{{Value: "201", Label: "Jalisco"}}, nil
			}
			require.NoError(t, c.OnParentChange(ctx, "2", ""))
			return []Option{{Value: "101", Label: "Antioquia"}}, nil
		}
		return nil, nil
	}

	require.NoError(t, c.OnParentChange(context.Background(), "1", ""))
	require.Equal(t, []Option{{Value: "201", Label: "Jalisco"}}, c.Options())
	require.True(t, c.Enabled())
}

func TestOnParentChange_Preselect(t *testing.T) {
	load := func(ctx context.Context, parent string) ([]Option, error) {
		return []Option{{Value: "101", Label: "Antioquia"}, {Value: "102", Label: "Cundinamarca"}}, nil
	}
	c := New("states", load, nil)

	require.NoError(t, c.OnParentChange(context.Background(), "1", "102"))
	require.Equal(t, "102", c.Selected())

	// A preselect value missing from the options selects nothing.
	require.NoError(t, c.OnParentChange(context.Background(), "1", "999"))
	require.Equal(t, "", c.Selected())
}

func TestOnParentChange_PermissionDeniedReported(t *testing.T) {
	reporter := &status.Memory{}
	load := func(ctx context.Context, parent string) ([]Option, error) {
		return nil, backend.Classify(403, "violates row-level security policy")
	}
	c := New("states", load, reporter)

	err := c.OnParentChange(context.Background(), "1", "")
	require.Error(t, err)
	msg, sev := reporter.Last()
	require.Equal(t, status.Error, sev)
	require.Contains(t, msg, "publicly readable")
	require.False(t, c.Enabled())
}

func TestOnParentChange_LoaderError(t *testing.T) {
	reporter := &status.Memory{}
	c := New("states", func(ctx context.Context, parent string) ([]Option, error) {
		return nil, errors.New("network down")
	}, reporter)

	require.Error(t, c.OnParentChange(context.Background(), "1", ""))
	_, sev := reporter.Last()
	require.Equal(t, status.Error, sev)
}

func TestTableLoader_MapsRowsToOptions(t *testing.T) {
	fake := backendtest.New()
	table := fake.FakeTable("states")
	table.Seed(
		backend.Row{"id": float64(102), "name": "Cundinamarca", "country_place_id": float64(1)},
		backend.Row{"id": float64(101), "name": "Antioquia", "country_place_id": float64(1)},
		backend.Row{"id": float64(201), "name": "Jalisco", "country_place_id": float64(2)},
	)

	load := TableLoader(table, "country_place_id")
	opts, err := load(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, []Option{
		{Value: "101", Label: "Antioquia"},
		{Value: "102", Label: "Cundinamarca"},
	}, opts)
}
