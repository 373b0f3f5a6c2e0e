package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"recruitment_backend/internal/applications"
	"recruitment_backend/internal/onboarding"
	"recruitment_backend/internal/processes"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// cohortFile is the JSON document the command reads. Exactly one of
// ProcessID and Process is set.
type cohortFile struct {
	ProcessID  *uuid.UUID   `json:"process_id"`
	Process    *processFile `json:"process"`
	Candidates []entryFile  `json:"candidates"`
}

type processFile struct {
	ClientName     string `json:"client_name"`
	ContactName    string `json:"contact_name"`
	ContactEmail   string `json:"contact_email"`
	PositionTitle  string `json:"position_title"`
	ServiceType    string `json:"service_type"`
	Vacancies      int    `json:"vacancies"`
	ConsultantName string `json:"consultant_name"`
	StartDate      string `json:"start_date"`
	Deadline       string `json:"deadline"`
}

type entryFile struct {
	CandidateID       *uuid.UUID   `json:"candidate_id"`
	Profile           *profileFile `json:"profile"`
	Portal            string       `json:"portal"`
	Rating            *int         `json:"rating"`
	Motivation        string       `json:"motivation"`
	SalaryExpectation string       `json:"salary_expectation"`
	Availability      string       `json:"availability"`
	Comment           string       `json:"comment"`
	CV                string       `json:"cv"`
}

type profileFile struct {
	FullName      string           `json:"full_name"`
	Email         string           `json:"email"`
	Phone         string           `json:"phone"`
	NationalID    string           `json:"national_id"`
	BirthDate     string           `json:"birth_date"`
	HasDisability bool             `json:"has_disability"`
	Commune       string           `json:"commune"`
	Region        string           `json:"region"`
	Nationality   string           `json:"nationality"`
	Sector        string           `json:"sector"`
	Experiences   []experienceFile `json:"experiences"`
	Education     []educationFile  `json:"education"`
	Profession    *professionFile  `json:"profession"`
}

type experienceFile struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

type educationFile struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Institution string `json:"institution"`
	AcquiredOn  string `json:"acquired_on"`
}

type professionFile struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
	AcquiredOn  string `json:"acquired_on"`
}

func readCohort(r io.Reader) (cohortFile, error) {
	var c cohortFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return cohortFile{}, fmt.Errorf("decode cohort: %w", err)
	}
	if (c.ProcessID == nil) == (c.Process == nil) {
		return cohortFile{}, fmt.Errorf("cohort needs exactly one of process_id and process")
	}
	return c, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: want YYYY-MM-DD, got %q", field, raw)
	}
	return &t, nil
}

func (p processFile) draft() (processes.Draft, error) {
	start, err := parseDate("process.start_date", p.StartDate)
	if err != nil {
		return processes.Draft{}, err
	}
	deadline, err := parseDate("process.deadline", p.Deadline)
	if err != nil {
		return processes.Draft{}, err
	}
	d := processes.Draft{
		ClientName:     p.ClientName,
		ContactName:    p.ContactName,
		ContactEmail:   p.ContactEmail,
		PositionTitle:  p.PositionTitle,
		ServiceType:    p.ServiceType,
		Vacancies:      p.Vacancies,
		ConsultantName: p.ConsultantName,
		Deadline:       deadline,
	}
	if start != nil {
		d.StartDate = *start
	}
	return d, nil
}

func (p profileFile) profile() (onboarding.Profile, error) {
	birth, err := parseDate("birth_date", p.BirthDate)
	if err != nil {
		return onboarding.Profile{}, err
	}
	out := onboarding.Profile{
		FullName:      p.FullName,
		Email:         p.Email,
		Phone:         p.Phone,
		NationalID:    p.NationalID,
		BirthDate:     birth,
		HasDisability: p.HasDisability,
		Commune:       p.Commune,
		Region:        p.Region,
		Nationality:   p.Nationality,
		Sector:        p.Sector,
	}
	for _, e := range p.Experiences {
		start, err := parseDate("experiences.start_date", e.StartDate)
		if err != nil {
			return onboarding.Profile{}, err
		}
		end, err := parseDate("experiences.end_date", e.EndDate)
		if err != nil {
			return onboarding.Profile{}, err
		}
		out.Experiences = append(out.Experiences, onboarding.ExperienceInput{
			Company: e.Company, Position: e.Position, StartDate: start, EndDate: end, Description: e.Description,
		})
	}
	for _, e := range p.Education {
		on, err := parseDate("education.acquired_on", e.AcquiredOn)
		if err != nil {
			return onboarding.Profile{}, err
		}
		out.Education = append(out.Education, onboarding.EducationInput{
			Name: e.Name, Kind: e.Kind, Institution: e.Institution, AcquiredOn: on,
		})
	}
	if p.Profession != nil {
		on, err := parseDate("profession.acquired_on", p.Profession.AcquiredOn)
		if err != nil {
			return onboarding.Profile{}, err
		}
		out.Profession = &onboarding.ProfessionInput{Name: p.Profession.Name, Institution: p.Profession.Institution, AcquiredOn: on}
	}
	return out, nil
}

// entries converts the cohort into pipeline entries. CV files are opened
// relative to dir; the returned closer releases them.
func (c cohortFile) entries(dir string) ([]onboarding.Entry, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	out := make([]onboarding.Entry, 0, len(c.Candidates))
	for i, e := range c.Candidates {
		entry := onboarding.Entry{
			CandidateID: e.CandidateID,
			Application: onboarding.ApplicationFields{
				Portal:            e.Portal,
				Rating:            e.Rating,
				Motivation:        e.Motivation,
				SalaryExpectation: e.SalaryExpectation,
				Availability:      e.Availability,
				Comment:           e.Comment,
			},
		}
		if e.Profile != nil {
			p, err := e.Profile.profile()
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("candidate %d: %w", i+1, err)
			}
			entry.Profile = &p
		}
		if e.CV != "" {
			f, cv, err := openCV(filepath.Join(dir, e.CV))
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("candidate %d: %w", i+1, err)
			}
			files = append(files, f)
			entry.CV = cv
		}
		out = append(out, entry)
	}
	return out, closeAll, nil
}

func openCV(path string) (*os.File, *applications.CVUpload, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("detect cv type: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return f, &applications.CVUpload{
		FileName:    filepath.Base(path),
		ContentType: mime.String(),
		Body:        f,
		Size:        info.Size(),
	}, nil
}
