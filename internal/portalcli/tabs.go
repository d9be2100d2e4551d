package portalcli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/profile"
	"github.com/talenorix/candidate-portal/internal/status"
	"github.com/talenorix/candidate-portal/internal/sync"
)

// tab is one feature module bound to the REPL: a synchronizer, its render
// sink, and its status line.
type tab struct {
	name     string
	sync     *sync.Synchronizer
	reporter *status.Memory
	fields   []string
}

// editableFields lists the columns a user sets by hand, per module.
var editableFields = map[string][]string{
	"basics":         {"headline", "summary", "phone", "whatsapp"},
	"experience":     {"company_name", "job_title", "employment_type", "start_date", "end_date", "is_current", "location_text", "description"},
	"education":      {"institution", "degree", "field_of_study", "start_date", "end_date", "is_current", "description"},
	"certifications": {"name", "issuer", "issue_date", "expiry_date", "credential_url", "attachment_path"},
	"skills":         {"skill_name"},
	"languages":      {"language", "proficiency"},
}

// tabSet holds every per-user module plus the non-synchronizer extras
// (identity, location, photo).
type tabSet struct {
	byName  map[string]*tab
	current string

	client   backend.Client
	userID   string
	location *profile.Location
	photo    *profile.Photo
}

func newTabSet(client backend.Client, userID string, reader *bufio.Reader) *tabSet {
	ts := &tabSet{byName: map[string]*tab{}, client: client, userID: userID}

	confirm := func(label string) bool {
		return ConfirmPrompt(reader, label, os.Stdout)
	}

	specs := map[string]sync.Spec{
		"basics":         profile.BasicsSpec(),
		"experience":     profile.ExperienceSpec(),
		"education":      profile.EducationSpec(),
		"certifications": profile.CertificationsSpec(),
		"skills":         profile.SkillsSpec(),
		"languages":      profile.LanguagesSpec(),
	}
	for name, spec := range specs {
		reporter := &status.Memory{}
		fields := editableFields[name]
		view := newTextView(os.Stdout, fields)
		ts.byName[name] = &tab{
			name:     name,
			sync:     sync.New(spec, client.Table(spec.Table), userID, view, reporter, confirm),
			reporter: reporter,
			fields:   fields,
		}
	}

	locReporter := &status.Log{Module: "location"}
	ts.location = profile.NewLocation(client, userID, locReporter)
	ts.photo = profile.NewPhoto(client, userID, &status.Log{Module: "photo"})
	return ts
}

func (ts *tabSet) has(name string) bool {
	_, ok := ts.byName[name]
	return ok
}

func (ts *tabSet) names() []string {
	out := make([]string, 0, len(ts.byName))
	for n := range ts.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// open switches the current tab and loads it.
func (ts *tabSet) open(ctx context.Context, name string) {
	t, ok := ts.byName[name]
	if !ok {
		fmt.Println("Unknown tab:", name)
		return
	}
	ts.current = name
	fmt.Printf("-- %s --\n", name)
	_ = t.sync.Load(ctx)
	ts.printStatus()
}

func (ts *tabSet) active() *tab {
	if ts.current == "" {
		return nil
	}
	return ts.byName[ts.current]
}

func (ts *tabSet) printStatus() {
	t := ts.active()
	if t == nil {
		return
	}
	if msg, sev := t.reporter.Last(); msg != "" {
		fmt.Printf("  [%s] %s\n", sev, msg)
	}
}
