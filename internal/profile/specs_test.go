package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talenorix/candidate-portal/internal/sync"
)

func record(fields map[string]any) *sync.Record {
	return &sync.Record{Fields: fields}
}

func TestExperienceSpec_RequiredFields(t *testing.T) {
	spec := ExperienceSpec()

	tests := []struct {
		name   string
		fields map[string]any
		field  string
	}{
		{"missing company", map[string]any{"job_title": "Dev", "start_date": "2024-01"}, "company_name"},
		{"missing title", map[string]any{"company_name": "Acme", "start_date": "2024-01"}, "job_title"},
		{"missing start", map[string]any{"company_name": "Acme", "job_title": "Dev"}, "start_date"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verr := spec.Validate(record(tc.fields))
			require.NotNil(t, verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}

	require.Nil(t, spec.Validate(record(map[string]any{
		"company_name": "Acme", "job_title": "Dev", "start_date": "2024-01",
	})))
}

func TestExperienceSpec_CurrentPositionClearsEndDate(t *testing.T) {
	spec := ExperienceSpec()
	r := record(map[string]any{
		"company_name": "Acme", "job_title": "Dev", "start_date": "2024-01",
		"end_date": "2025-01", "is_current": true,
	})
	require.Nil(t, spec.Validate(r))
	require.Nil(t, r.Fields["end_date"])
}

func TestEducationSpec_Limits(t *testing.T) {
	spec := EducationSpec()

	require.NotNil(t, spec.Validate(record(map[string]any{})))

	long := strings.Repeat("x", 161)
	verr := spec.Validate(record(map[string]any{"institution": long}))
	require.NotNil(t, verr)
	require.Equal(t, "institution", verr.Field)

	verr = spec.Validate(record(map[string]any{
		"institution": "MIT", "degree": strings.Repeat("x", 81),
	}))
	require.NotNil(t, verr)
	require.Equal(t, "degree", verr.Field)

	require.Nil(t, spec.Validate(record(map[string]any{"institution": "MIT"})))
}

func TestCertificationsSpec_Limits(t *testing.T) {
	spec := CertificationsSpec()

	verr := spec.Validate(record(map[string]any{}))
	require.NotNil(t, verr)
	require.Equal(t, "name", verr.Field)

	verr = spec.Validate(record(map[string]any{
		"name": "Cert", "credential_url": strings.Repeat("u", 501),
	}))
	require.NotNil(t, verr)
	require.Equal(t, "credential_url", verr.Field)

	require.Nil(t, spec.Validate(record(map[string]any{"name": "Cert"})))
}

func TestSkillsSpec_Limits(t *testing.T) {
	spec := SkillsSpec()

	require.NotNil(t, spec.Validate(record(map[string]any{})))
	require.NotNil(t, spec.Validate(record(map[string]any{"skill_name": strings.Repeat("g", 81)})))
	require.Nil(t, spec.Validate(record(map[string]any{"skill_name": "Go"})))
}

func TestLanguagesSpec_Limits(t *testing.T) {
	spec := LanguagesSpec()

	require.NotNil(t, spec.Validate(record(map[string]any{})))
	require.NotNil(t, spec.Validate(record(map[string]any{
		"language": "Spanish", "proficiency": strings.Repeat("p", 41),
	})))
	require.Nil(t, spec.Validate(record(map[string]any{"language": "Spanish", "proficiency": "Native"})))
}

func TestBasicsSpec_LimitsAndShape(t *testing.T) {
	spec := BasicsSpec()
	require.True(t, spec.Singleton)
	require.Equal(t, "user_id", spec.ConflictKey)

	tests := []struct {
		field string
		limit int
	}{
		{"headline", 160},
		{"summary", 4000},
		{"phone", 40},
		{"whatsapp", 40},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			require.Nil(t, spec.Validate(record(map[string]any{tc.field: strings.Repeat("a", tc.limit)})))
			verr := spec.Validate(record(map[string]any{tc.field: strings.Repeat("a", tc.limit+1)}))
			require.NotNil(t, verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCollectionSpecs_ConflictOnID(t *testing.T) {
	for _, spec := range []sync.Spec{
		ExperienceSpec(), EducationSpec(), CertificationsSpec(), SkillsSpec(), LanguagesSpec(),
	} {
		require.Equal(t, "id", spec.ConflictKey, spec.Label)
		require.Equal(t, "user_id", spec.OwnerColumn, spec.Label)
		require.Equal(t, "created_at", spec.OrderBy, spec.Label)
		require.False(t, spec.Singleton, spec.Label)
	}
}
