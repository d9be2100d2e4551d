// Package profile defines the candidate-facing feature modules: identity,
// profile basics, location, photo, and the five collection editors
// (experience, education, certifications, skills, languages). Each collection
// module is a sync.Spec; the synchronizer supplies the shared cycle.
package profile

import (
	"github.com/talenorix/candidate-portal/internal/sync"
)

// Table names, as provisioned on the backend.
const (
	TableProfiles       = "profiles"
	TableCandidate      = "candidate_profiles"
	TableExperiences    = "candidate_experiences"
	TableEducation      = "candidate_education"
	TableCertifications = "candidate_certifications"
	TableSkills         = "candidate_skills"
	TableLanguages      = "candidate_languages"
	TablePlaces         = "places"
	TableStates         = "states"
)

// ExperienceSpec is the work-experience collection. Company, title, and
// start date are the backend's NOT NULL columns; a current position clears
// its end date.
func ExperienceSpec() sync.Spec {
	return sync.Spec{
		Label:       "experience",
		Table:       TableExperiences,
		OwnerColumn: "user_id",
		ConflictKey: "id",
		Columns: []string{
			"id", "user_id", "company_name", "job_title", "employment_type",
			"start_date", "end_date", "is_current", "location_text",
			"description", "created_at",
		},
		OrderBy: "created_at",
		Validate: func(r *sync.Record) *sync.ValidationError {
			if r.Field("company_name") == "" {
				return sync.Required("company_name", "company")
			}
			if r.Field("job_title") == "" {
				return sync.Required("job_title", "job title")
			}
			if r.Field("start_date") == "" {
				return sync.Required("start_date", "start date")
			}
			clampCurrent(r)
			return nil
		},
		Defaults: func() map[string]any {
			return map[string]any{
				"company_name": "", "job_title": "", "employment_type": "",
				"start_date": "", "end_date": "", "is_current": false,
				"location_text": "", "description": "",
			}
		},
	}
}

// EducationSpec is the education collection. Only the institution is
// mandatory; degree and field of study carry length caps.
func EducationSpec() sync.Spec {
	return sync.Spec{
		Label:       "education",
		Table:       TableEducation,
		OwnerColumn: "user_id",
		ConflictKey: "id",
		Columns: []string{
			"id", "user_id", "institution", "degree", "field_of_study",
			"start_date", "end_date", "is_current", "description", "created_at",
		},
		OrderBy: "created_at",
		Validate: func(r *sync.Record) *sync.ValidationError {
			if r.Field("institution") == "" {
				return sync.Required("institution", "institution")
			}
			if v := sync.MaxLen(r, "institution", "institution", 160); v != nil {
				return v
			}
			if v := sync.MaxLen(r, "degree", "degree", 80); v != nil {
				return v
			}
			if v := sync.MaxLen(r, "field_of_study", "field of study", 160); v != nil {
				return v
			}
			clampCurrent(r)
			return nil
		},
		Defaults: func() map[string]any {
			return map[string]any{
				"institution": "", "degree": "", "field_of_study": "",
				"start_date": "", "end_date": "", "is_current": false,
				"description": "",
			}
		},
	}
}

// CertificationsSpec is the certifications collection.
func CertificationsSpec() sync.Spec {
	return sync.Spec{
		Label:       "certifications",
		Table:       TableCertifications,
		OwnerColumn: "user_id",
		ConflictKey: "id",
		Columns: []string{
			"id", "user_id", "name", "issuer", "issue_date", "expiry_date",
			"credential_url", "attachment_path", "created_at",
		},
		OrderBy: "created_at",
		Validate: func(r *sync.Record) *sync.ValidationError {
			if r.Field("name") == "" {
				return sync.Required("name", "certification name")
			}
			if v := sync.MaxLen(r, "name", "name", 160); v != nil {
				return v
			}
			if v := sync.MaxLen(r, "issuer", "issuer", 160); v != nil {
				return v
			}
			if v := sync.MaxLen(r, "credential_url", "credential URL", 500); v != nil {
				return v
			}
			return sync.MaxLen(r, "attachment_path", "attachment path", 500)
		},
		Defaults: func() map[string]any {
			return map[string]any{
				"name": "", "issuer": "", "issue_date": "", "expiry_date": "",
				"credential_url": "", "attachment_path": "",
			}
		},
	}
}

// SkillsSpec is the skills collection: one short name per row.
func SkillsSpec() sync.Spec {
	return sync.Spec{
		Label:       "skills",
		Table:       TableSkills,
		OwnerColumn: "user_id",
		ConflictKey: "id",
		Columns:     []string{"id", "user_id", "skill_name", "created_at"},
		OrderBy:     "created_at",
		Validate: func(r *sync.Record) *sync.ValidationError {
			if r.Field("skill_name") == "" {
				return sync.Required("skill_name", "skill name")
			}
			return sync.MaxLen(r, "skill_name", "skill name", 80)
		},
		Defaults: func() map[string]any {
			return map[string]any{"skill_name": ""}
		},
	}
}

// LanguagesSpec is the languages collection.
func LanguagesSpec() sync.Spec {
	return sync.Spec{
		Label:       "languages",
		Table:       TableLanguages,
		OwnerColumn: "user_id",
		ConflictKey: "id",
		Columns:     []string{"id", "user_id", "language", "proficiency", "created_at"},
		OrderBy:     "created_at",
		Validate: func(r *sync.Record) *sync.ValidationError {
			if r.Field("language") == "" {
				return sync.Required("language", "language")
			}
			if v := sync.MaxLen(r, "language", "language", 80); v != nil {
				return v
			}
			return sync.MaxLen(r, "proficiency", "proficiency", 40)
		},
		Defaults: func() map[string]any {
			return map[string]any{"language": "", "proficiency": ""}
		},
	}
}

// BasicsSpec is the candidate basics singleton: one row per user in
// candidate_profiles, upserted on the owner column.
func BasicsSpec() sync.Spec {
	return sync.Spec{
		Label:       "profile basics",
		Table:       TableCandidate,
		OwnerColumn: "user_id",
		ConflictKey: "user_id",
		Columns:     []string{"id", "user_id", "headline", "summary", "phone", "whatsapp"},
		Singleton:   true,
		Validate: func(r *sync.Record) *sync.ValidationError {
			if v := sync.MaxLen(r, "headline", "headline", 160); v != nil {
				return v
			}
			if v := sync.MaxLen(r, "summary", "summary", 4000); v != nil {
				return v
			}
			if v := sync.MaxLen(r, "phone", "phone", 40); v != nil {
				return v
			}
			return sync.MaxLen(r, "whatsapp", "WhatsApp", 40)
		},
		Defaults: func() map[string]any {
			return map[string]any{"headline": "", "summary": "", "phone": "", "whatsapp": ""}
		},
	}
}

// clampCurrent enforces the current-position rule: an ongoing entry cannot
// carry an end date.
func clampCurrent(r *sync.Record) {
	if b, ok := r.Fields["is_current"].(bool); ok && b {
		r.Set("end_date", nil)
	}
}
