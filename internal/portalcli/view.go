package portalcli

import (
	"fmt"
	"io"
	"strings"

	"github.com/talenorix/candidate-portal/internal/sync"
)

// textView renders a synchronizer's record list as numbered lines. The
// synchronizer owns the list; the view only mirrors the fields it is given.
type textView struct {
	w      io.Writer
	fields []string
}

func newTextView(w io.Writer, fields []string) *textView {
	return &textView{w: w, fields: fields}
}

func (v *textView) Render(records []*sync.Record) {
	if len(records) == 0 {
		fmt.Fprintln(v.w, "  (empty)")
		return
	}
	for i, rec := range records {
		parts := make([]string, 0, len(v.fields))
		for _, f := range v.fields {
			if val := rec.Field(f); val != "" {
				parts = append(parts, f+"="+val)
			}
		}
		marker := "*" // unsaved
		if rec.Persisted() {
			marker = " "
		}
		fmt.Fprintf(v.w, " %s[%d] %s\n", marker, i, strings.Join(parts, " | "))
	}
}
