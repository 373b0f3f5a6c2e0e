// Package candidates stores candidates with their work history, education
// and professions, and serves the consultant edit flow.
package candidates

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Candidate is a person who can apply to processes.
type Candidate struct {
	ID            uuid.UUID
	FirstName     string
	FirstSurname  string
	SecondSurname string
	NationalID    *string
	Email         string
	Phone         string
	BirthDate     *time.Time
	HasDisability bool
	CommuneID     *int64
	NationalityID *int64
	SectorID      *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins the non-empty name parts.
func (c Candidate) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.FirstName, c.FirstSurname, c.SecondSurname} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// WorkExperience is one entry of a candidate's work history.
type WorkExperience struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	Company     string
	Position    string
	StartDate   *time.Time
	EndDate     *time.Time
	Description string
}

// CourseKind distinguishes postgraduate studies from training courses.
type CourseKind string

const (
	CoursePostgraduate CourseKind = "postgrado"
	CourseTraining     CourseKind = "capacitacion"
)

// Valid reports whether k is a known course kind.
func (k CourseKind) Valid() bool {
	return k == CoursePostgraduate || k == CourseTraining
}

// Course is an education entry attached to a candidate.
type Course struct {
	ID            uuid.UUID
	Name          string
	Kind          CourseKind
	InstitutionID int64
	AcquiredOn    *time.Time
}

// ProfessionLink attaches a profession to a candidate.
type ProfessionLink struct {
	ProfessionID  int64
	InstitutionID int64
	AcquiredOn    *time.Time
}

// CourseRecord is a course with its institution name.
type CourseRecord struct {
	Course
	Institution string
}

// ProfessionRecord is a profession link with names resolved.
type ProfessionRecord struct {
	ProfessionLink
	Profession  string
	Institution string
}

// Record is a candidate loaded with every relation and reference name.
type Record struct {
	Candidate
	Commune     string
	Region      string
	Nationality string
	Sector      string
	Experiences []WorkExperience
	Courses     []CourseRecord
	Professions []ProfessionRecord
}

// AgeAt returns the candidate's age on now's date, or nil without a birth date.
func (r Record) AgeAt(now time.Time) *int {
	if r.BirthDate == nil {
		return nil
	}
	age := AgeOn(*r.BirthDate, now)
	return &age
}

// AgeOn returns the number of whole years between birth and now's calendar
// date. A birthday later this year does not count yet.
func AgeOn(birth, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()

	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
