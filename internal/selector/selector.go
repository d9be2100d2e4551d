// Package selector keeps a dependent option list (e.g. states) consistent
// with its parent value (e.g. country) under rapid parent changes. Each
// fetch carries a sequence tag taken at issue time; only the response whose
// tag still equals the latest issued tag is applied, so the visible options
// always reflect the most recent parent regardless of completion order.
package selector

import (
	"context"
	"strconv"
	"sync"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/status"
)

// Option is one selectable entry.
type Option struct {
	Value string
	Label string
}

// Loader fetches the options for one parent value.
type Loader func(ctx context.Context, parent string) ([]Option, error)

// Cascade is the dependent half of a parent/dependent selector pair.
type Cascade struct {
	load     Loader
	reporter status.Reporter
	label    string

	mu       sync.Mutex
	seq      uint64
	options  []Option
	selected string
	enabled  bool
}

// New builds a disabled, empty cascade. label names the dependent list in
// status messages ("states").
func New(label string, load Loader, reporter status.Reporter) *Cascade {
	return &Cascade{label: label, load: load, reporter: reporter}
}

// Options returns the currently applied option list.
func (c *Cascade) Options() []Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Option, len(c.options))
	copy(out, c.options)
	return out
}

// Enabled reports whether the dependent selector accepts input.
func (c *Cascade) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Selected returns the currently selected dependent value.
func (c *Cascade) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Select records a user choice from the applied options.
func (c *Cascade) Select(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = value
}

// OnParentChange clears and disables the dependent list, fetches options
// for the new parent, and applies them only if no newer change superseded
// this one while the fetch was in flight. preselect, when non-empty and
// present in the fetched options, becomes the selected value; initial load
// uses it to restore a persisted choice.
func (c *Cascade) OnParentChange(ctx context.Context, parent, preselect string) error {
	c.mu.Lock()
	c.seq++
	tag := c.seq
	c.options = nil
	c.selected = ""
	c.enabled = false
	c.mu.Unlock()

	if parent == "" {
		status.Reportf(c.reporter, status.Info, "Select a parent value to enable %s.", c.label)
		return nil
	}

	opts, err := c.load(ctx, parent)

	c.mu.Lock()
	if tag != c.seq {
		// A newer parent change superseded this fetch; drop it silently.
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		if backend.IsPermissionDenied(err) {
			status.Reportf(c.reporter, status.Error,
				"Row policy blocked reading %s; the reference table should be publicly readable. Detail: %s",
				c.label, backend.Stringify(err))
		} else {
			status.Reportf(c.reporter, status.Error, "Error loading %s: %s", c.label, backend.Stringify(err))
		}
		return err
	}
	c.options = opts
	c.enabled = true
	if preselect != "" {
		for _, o := range opts {
			if o.Value == preselect {
				c.selected = preselect
				break
			}
		}
	}
	c.mu.Unlock()

	status.Reportf(c.reporter, status.Info, "Loaded %s (%d).", c.label, len(opts))
	return nil
}

// TableLoader builds a Loader over a reference table: rows matching
// parentColumn = parent, ordered by name ascending, mapped to id/name
// options. Used for the states list; the countries list uses the same
// shape with a fixed filter.
func TableLoader(table backend.Table, parentColumn string) Loader {
	return func(ctx context.Context, parent string) ([]Option, error) {
		q := backend.Query{
			Columns:   []string{"id", "name"},
			OrderBy:   "name",
			Ascending: true,
		}.Eq(parentColumn, parent)

		rows, err := table.Select(ctx, q)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(rows))
		for _, r := range rows {
			opts = append(opts, Option{Value: rowString(r, "id"), Label: rowString(r, "name")})
		}
		return opts, nil
	}
}

func rowString(r backend.Row, key string) string {
	if v, ok := r[key]; ok && v != nil {
		switch t := v.(type) {
		case string:
			return t
		case float64:
			// JSON numbers decode as float64; ids are integral.
			return strconv.FormatInt(int64(t), 10)
		}
	}
	return ""
}
