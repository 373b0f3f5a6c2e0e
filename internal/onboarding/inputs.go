package onboarding

import (
	"errors"
	"fmt"
	"time"

	"recruitment_backend/internal/applications"
	"recruitment_backend/internal/candidates"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Profile describes a new candidate.
type Profile struct {
	FullName      string            `validate:"notblank,max=300"`
	Email         string            `validate:"required,email,max=254"`
	Phone         string            `validate:"notblank,max=30"`
	NationalID    string            `validate:"max=20"`
	BirthDate     *time.Time        `validate:"omitempty"`
	HasDisability bool              `validate:"-"`
	Commune       string            `validate:"max=100"`
	Region        string            `validate:"max=100"`
	Nationality   string            `validate:"max=100"`
	Sector        string            `validate:"max=100"`
	Experiences   []ExperienceInput `validate:"dive"`
	Education     []EducationInput  `validate:"dive"`
	Profession    *ProfessionInput  `validate:"omitempty"`
}

// ExperienceInput is one work history entry.
type ExperienceInput struct {
	Company     string     `validate:"notblank,max=200"`
	Position    string     `validate:"notblank,max=200"`
	StartDate   *time.Time `validate:"omitempty"`
	EndDate     *time.Time `validate:"omitempty"`
	Description string     `validate:"max=4000"`
}

// EducationInput is a postgraduate degree or a training course. Unlike a
// profession, an education entry has no default institution: a blank one
// fails the onboarding while its relations are written.
type EducationInput struct {
	Name        string     `validate:"notblank,max=200"`
	Kind        string     `validate:"required,oneof=postgrado capacitacion"`
	Institution string     `validate:"max=200"`
	AcquiredOn  *time.Time `validate:"omitempty"`
}

// ProfessionInput attaches a profession. A blank institution resolves to
// the configured default.
type ProfessionInput struct {
	Name        string     `validate:"notblank,max=200"`
	Institution string     `validate:"max=200"`
	AcquiredOn  *time.Time `validate:"omitempty"`
}

// ApplicationFields are the application columns set at creation.
type ApplicationFields struct {
	Portal            string `validate:"max=100"`
	Rating            *int   `validate:"omitempty,min=1,max=5"`
	Motivation        string `validate:"max=4000"`
	SalaryExpectation string `validate:"max=200"`
	Availability      string `validate:"max=200"`
	Comment           string `validate:"max=4000"`
}

// Entry is one candidate to apply to a process: either an existing
// candidate by id or a profile, which reuses the candidate with the same
// email when there is one.
type Entry struct {
	CandidateID *uuid.UUID
	Profile     *Profile
	Application ApplicationFields
	// CV is uploaded after the transaction commits.
	CV *applications.CVUpload
}

// CandidateResult is a candidate as left by onboarding.
type CandidateResult struct {
	Record   candidates.Record
	Age      *int
	Degraded bool
	Reused   bool
}

// ApplicationResult is one onboarded application.
type ApplicationResult struct {
	Candidate   CandidateResult
	Application applications.Record
	// CVStored reports whether a CV was uploaded and linked.
	CVStored bool
}

func (p *Pipeline) validateProfile(in Profile) error {
	if err := p.val.Struct(in); err != nil {
		return err
	}
	if _, err := SplitFullName(in.FullName); err != nil {
		return err
	}
	for i, e := range in.Experiences {
		if e.StartDate != nil && e.EndDate != nil && e.EndDate.Before(*e.StartDate) {
			field := fmt.Sprintf("Experiences[%d].EndDate", i)
			return apperr.Validation("experience ends before it starts").WithDetails(map[string]string{field: "gtefield"})
		}
	}
	return nil
}

func (p *Pipeline) validateEntry(e Entry) error {
	switch {
	case e.CandidateID == nil && e.Profile == nil:
		return apperr.Validation("candidate id or profile is required")
	case e.CandidateID != nil && e.Profile != nil:
		return apperr.Validation("give either a candidate id or a profile, not both")
	}
	if e.Profile != nil {
		if err := p.validateProfile(*e.Profile); err != nil {
			return err
		}
	}
	if err := applications.ValidateRating(e.Application.Rating); err != nil {
		return err
	}
	return p.val.Struct(e.Application)
}

// validateBatch validates every entry and rejects a candidate that appears
// twice in the batch.
func (p *Pipeline) validateBatch(entries []Entry) error {
	emails := make(map[string]int, len(entries))
	ids := make(map[uuid.UUID]int, len(entries))

	for i, e := range entries {
		if err := p.validateEntry(e); err != nil {
			return entryError(i, err)
		}
		if e.Profile != nil {
			email := sanitize.Email(e.Profile.Email)
			if first, ok := emails[email]; ok {
				return apperr.Validation(fmt.Sprintf("entries %d and %d share email %s", first+1, i+1, email))
			}
			emails[email] = i
		}
		if e.CandidateID != nil {
			if first, ok := ids[*e.CandidateID]; ok {
				return apperr.Validation(fmt.Sprintf("entries %d and %d are the same candidate", first+1, i+1))
			}
			ids[*e.CandidateID] = i
		}
	}
	return nil
}

// entryError prefixes err with the entry's 1-based position, keeping its kind.
func entryError(i int, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return fmt.Errorf("entry %d: %w", i+1, err)
	}
	out := apperr.Wrap(appErr.Kind, fmt.Sprintf("entry %d: %s", i+1, appErr.Message), err)
	if details, ok := appErr.Details.(map[string]string); ok {
		prefixed := make(map[string]string, len(details))
		for k, v := range details {
			prefixed[fmt.Sprintf("entries[%d].%s", i, k)] = v
		}
		return out.WithDetails(prefixed)
	}
	return out.WithDetails(appErr.Details)
}
