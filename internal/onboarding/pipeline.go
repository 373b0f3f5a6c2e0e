// Package onboarding creates candidates and their applications to processes
// in single transactions. Reference names are resolved on the same
// transaction, so a failed onboarding leaves no rows behind, lookup rows
// included. CV uploads happen only after the transaction has committed.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recruitment_backend/internal/applications"
	"recruitment_backend/internal/candidates"
	"recruitment_backend/internal/processes"
	"recruitment_backend/internal/reference"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/config"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"
	"recruitment_backend/platform/phone"
	"recruitment_backend/platform/sanitize"
	"recruitment_backend/platform/validator"

	"github.com/google/uuid"
)

const (
	opCreateCandidate   = "onboarding.CreateCandidateWithRelations"
	opCreateApplication = "onboarding.CreateApplicationForProcess"
	opAddCandidates     = "onboarding.AddCandidatesToProcess"
	opCreateProcess     = "onboarding.CreateProcessWithCandidates"
)

// CandidateStore is the candidate persistence onboarding writes through.
// *candidates.Repository implements it.
type CandidateStore interface {
	Insert(ctx context.Context, q db.DBTX, c candidates.Candidate) (candidates.Candidate, error)
	FindIDByEmail(ctx context.Context, q db.DBTX, email string) (uuid.UUID, error)
	InsertExperience(ctx context.Context, q db.DBTX, e candidates.WorkExperience) error
	InsertCourse(ctx context.Context, q db.DBTX, candidateID uuid.UUID, c candidates.Course) error
	AttachProfession(ctx context.Context, q db.DBTX, candidateID uuid.UUID, p candidates.ProfessionLink) error
	Load(ctx context.Context, q db.DBTX, id uuid.UUID) (candidates.Record, error)
}

// ApplicationStore is the application persistence onboarding writes through.
// *applications.Repository implements it.
type ApplicationStore interface {
	Insert(ctx context.Context, q db.DBTX, a applications.Application) (applications.Application, error)
	Exists(ctx context.Context, q db.DBTX, candidateID, processID uuid.UUID) (bool, error)
	Load(ctx context.Context, q db.DBTX, id uuid.UUID) (applications.Record, error)
	CountByProcess(ctx context.Context, q db.DBTX, processID uuid.UUID) (int, error)
}

// ProcessGateway opens and locks processes. *processes.Service implements it.
type ProcessGateway interface {
	Validate(d processes.Draft) error
	CreateTx(ctx context.Context, q db.DBTX, d processes.Draft) (processes.Process, error)
	RequireTx(ctx context.Context, q db.DBTX, id uuid.UUID) (processes.Process, error)
	SetEvaluationHeadcountTx(ctx context.Context, q db.DBTX, id uuid.UUID, n int) error
}

// CVAttacher uploads a CV and links it to an application.
// *applications.Service implements it.
type CVAttacher interface {
	AttachCV(ctx context.Context, id uuid.UUID, cv applications.CVUpload) (applications.Record, error)
}

// Deps are the collaborators of a Pipeline. CVs is optional.
type Deps struct {
	Tx           db.Transactor
	Resolver     *reference.Resolver
	Candidates   CandidateStore
	Applications ApplicationStore
	Processes    ProcessGateway
	CVs          CVAttacher
	Validator    *validator.Validator
	Defaults     config.Defaults
	Log          *logger.Logger
	Now          func() time.Time
}

// Pipeline onboards candidates and applications.
type Pipeline struct {
	tx           db.Transactor
	resolver     *reference.Resolver
	candidates   CandidateStore
	applications ApplicationStore
	processes    ProcessGateway
	cvs          CVAttacher
	val          *validator.Validator
	defaults     config.Defaults
	log          *logger.Logger
	now          func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(d Deps) *Pipeline {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		tx:           d.Tx,
		resolver:     d.Resolver,
		candidates:   d.Candidates,
		applications: d.Applications,
		processes:    d.Processes,
		cvs:          d.CVs,
		val:          d.Validator,
		defaults:     d.Defaults,
		log:          d.Log,
		now:          now,
	}
}

// BulkResult is the outcome of onboarding a cohort into one process.
type BulkResult struct {
	Process      processes.Process
	Applications []ApplicationResult
}

// =============================================================================
// Candidates
// =============================================================================

// CreateCandidateWithRelations creates a candidate with its work history,
// education and profession in one transaction and returns it fully loaded.
func (p *Pipeline) CreateCandidateWithRelations(ctx context.Context, in Profile) (CandidateResult, error) {
	if err := p.validateProfile(in); err != nil {
		return CandidateResult{}, err
	}

	var res CandidateResult
	err := p.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		var err error
		res, err = p.CreateCandidateWithRelationsTx(ctx, q, in)
		return err
	})
	if err != nil {
		return CandidateResult{}, p.failed(opCreateCandidate, err)
	}
	return res, nil
}

// CreateCandidateWithRelationsTx is CreateCandidateWithRelations on the
// caller's transaction. The profile must have been validated.
func (p *Pipeline) CreateCandidateWithRelationsTx(ctx context.Context, q db.DBTX, in Profile) (CandidateResult, error) {
	email := sanitize.Email(in.Email)
	_, err := p.candidates.FindIDByEmail(ctx, q, email)
	switch {
	case err == nil:
		return CandidateResult{}, duplicateEmail(email)
	case !errors.Is(err, candidates.ErrNotFound):
		return CandidateResult{}, err
	}
	return p.createCandidate(ctx, q, in)
}

func (p *Pipeline) createCandidate(ctx context.Context, q db.DBTX, in Profile) (CandidateResult, error) {
	names, err := SplitFullName(in.FullName)
	if err != nil {
		return CandidateResult{}, err
	}

	c := candidates.Candidate{
		FirstName:     names.FirstName,
		FirstSurname:  names.FirstSurname,
		SecondSurname: names.SecondSurname,
		NationalID:    optional(sanitize.Key(in.NationalID)),
		Email:         sanitize.Email(in.Email),
		Phone:         phone.NormalizeE164(in.Phone, p.defaults.PhoneRegion),
		BirthDate:     in.BirthDate,
		HasDisability: in.HasDisability,
	}

	commune := in.Commune
	if sanitize.Key(commune) == "" {
		commune = p.defaults.Location
	}
	if c.CommuneID, err = p.resolver.ResolveCommune(ctx, q, commune, in.Region); err != nil {
		return CandidateResult{}, err
	}
	if c.NationalityID, err = p.resolver.ResolveOptional(ctx, q, reference.KindNationality, in.Nationality); err != nil {
		return CandidateResult{}, err
	}
	if c.SectorID, err = p.resolver.ResolveOptional(ctx, q, reference.KindSector, in.Sector); err != nil {
		return CandidateResult{}, err
	}

	c, err = p.candidates.Insert(ctx, q, c)
	if errors.Is(err, candidates.ErrDuplicateEmail) {
		return CandidateResult{}, duplicateEmail(sanitize.Email(in.Email))
	}
	if err != nil {
		return CandidateResult{}, err
	}

	if err := p.insertRelations(ctx, q, c.ID, in); err != nil {
		return CandidateResult{}, err
	}

	rec, err := p.candidates.Load(ctx, q, c.ID)
	if err != nil {
		return CandidateResult{}, err
	}

	if names.Degraded {
		p.log.Warn("candidate name has a single token", "candidate_id", c.ID, "full_name", in.FullName)
	}
	p.afterCommit(ctx, func(context.Context) {
		p.log.Info("candidate created", "candidate_id", c.ID, "email", c.Email)
	})

	return CandidateResult{Record: rec, Age: rec.AgeAt(p.now()), Degraded: names.Degraded}, nil
}

func (p *Pipeline) insertRelations(ctx context.Context, q db.DBTX, candidateID uuid.UUID, in Profile) error {
	for _, e := range in.Experiences {
		err := p.candidates.InsertExperience(ctx, q, candidates.WorkExperience{
			ID:          uuid.New(),
			CandidateID: candidateID,
			Company:     sanitize.Name(e.Company),
			Position:    sanitize.Name(e.Position),
			StartDate:   e.StartDate,
			EndDate:     e.EndDate,
			Description: sanitize.Text(e.Description),
		})
		if err != nil {
			return err
		}
	}

	for i, e := range in.Education {
		if sanitize.Key(e.Institution) == "" {
			field := fmt.Sprintf("Education[%d].Institution", i)
			return apperr.Validation("education entry has no institution").WithDetails(map[string]string{field: "required"})
		}
		institutionID, err := p.resolver.Resolve(ctx, q, reference.KindInstitution, e.Institution)
		if err != nil {
			return err
		}
		err = p.candidates.InsertCourse(ctx, q, candidateID, candidates.Course{
			ID:            uuid.New(),
			Name:          sanitize.Name(e.Name),
			Kind:          candidates.CourseKind(e.Kind),
			InstitutionID: institutionID,
			AcquiredOn:    e.AcquiredOn,
		})
		if err != nil {
			return err
		}
	}

	if in.Profession == nil {
		return nil
	}
	professionID, err := p.resolver.Resolve(ctx, q, reference.KindProfession, in.Profession.Name)
	if err != nil {
		return err
	}
	institution := in.Profession.Institution
	if sanitize.Key(institution) == "" {
		institution = p.defaults.Institution
	}
	institutionID, err := p.resolver.Resolve(ctx, q, reference.KindInstitution, institution)
	if err != nil {
		return err
	}
	return p.candidates.AttachProfession(ctx, q, candidateID, candidates.ProfessionLink{
		ProfessionID:  professionID,
		InstitutionID: institutionID,
		AcquiredOn:    in.Profession.AcquiredOn,
	})
}

// =============================================================================
// Applications
// =============================================================================

// CreateApplicationForProcess applies one candidate to a process in one
// transaction, creating the candidate when the entry carries an unknown
// email. A CV in the entry is uploaded once the transaction has committed;
// a failed upload leaves the application in place with CVStored false.
func (p *Pipeline) CreateApplicationForProcess(ctx context.Context, processID uuid.UUID, e Entry) (ApplicationResult, error) {
	if err := p.validateEntry(e); err != nil {
		return ApplicationResult{}, err
	}

	var res ApplicationResult
	err := p.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if _, err := p.processes.RequireTx(ctx, q, processID); err != nil {
			return err
		}
		var err error
		res, err = p.apply(ctx, q, processID, e)
		return err
	})
	if err != nil {
		return ApplicationResult{}, p.failed(opCreateApplication, err)
	}

	p.storeCV(ctx, &res, e.CV)
	return res, nil
}

// CreateApplicationForProcessTx is CreateApplicationForProcess on the
// caller's transaction. The entry must have been validated. A CV is
// uploaded by a hook on the transaction's commit scope, so the returned
// result never reports it stored; without a scope the CV is skipped.
func (p *Pipeline) CreateApplicationForProcessTx(ctx context.Context, q db.DBTX, processID uuid.UUID, e Entry) (ApplicationResult, error) {
	if _, err := p.processes.RequireTx(ctx, q, processID); err != nil {
		return ApplicationResult{}, err
	}
	res, err := p.apply(ctx, q, processID, e)
	if err != nil {
		return ApplicationResult{}, err
	}

	if e.CV != nil {
		pending := res
		registered := db.AfterCommit(ctx, func(ctx context.Context) {
			p.storeCV(ctx, &pending, e.CV)
		})
		if !registered {
			p.log.Warn("cv skipped outside a commit scope", "application_id", res.Application.ID)
		}
	}
	return res, nil
}

// apply resolves the candidate and inserts the application. The process
// must already be locked on q.
func (p *Pipeline) apply(ctx context.Context, q db.DBTX, processID uuid.UUID, e Entry) (ApplicationResult, error) {
	cand, err := p.candidateFor(ctx, q, e)
	if err != nil {
		return ApplicationResult{}, err
	}
	candidateID := cand.Record.ID

	exists, err := p.applications.Exists(ctx, q, candidateID, processID)
	if err != nil {
		return ApplicationResult{}, err
	}
	if exists {
		return ApplicationResult{}, alreadyApplied(cand.Record.Email)
	}

	portal := e.Application.Portal
	if sanitize.Key(portal) == "" {
		portal = p.defaults.Portal
	}
	portalID, err := p.resolver.Resolve(ctx, q, reference.KindPortal, portal)
	if err != nil {
		return ApplicationResult{}, err
	}
	statusID, err := p.resolver.Lookup(ctx, q, reference.KindCandidateStatus, p.defaults.ApplicationStatus)
	if err != nil {
		return ApplicationResult{}, err
	}

	a, err := p.applications.Insert(ctx, q, applications.Application{
		ID:                uuid.New(),
		CandidateID:       candidateID,
		ProcessID:         processID,
		PortalID:          portalID,
		StatusID:          statusID,
		Rating:            e.Application.Rating,
		Motivation:        sanitize.Text(e.Application.Motivation),
		SalaryExpectation: sanitize.Text(e.Application.SalaryExpectation),
		Availability:      sanitize.Text(e.Application.Availability),
		Comment:           sanitize.Text(e.Application.Comment),
	})
	if errors.Is(err, applications.ErrDuplicate) {
		return ApplicationResult{}, alreadyApplied(cand.Record.Email)
	}
	if err != nil {
		return ApplicationResult{}, err
	}

	rec, err := p.applications.Load(ctx, q, a.ID)
	if err != nil {
		return ApplicationResult{}, err
	}

	p.afterCommit(ctx, func(context.Context) {
		p.log.Info("application created",
			"application_id", a.ID, "candidate_id", candidateID, "process_id", processID, "reused_candidate", cand.Reused)
	})
	return ApplicationResult{Candidate: cand, Application: rec}, nil
}

// candidateFor returns the entry's candidate, creating it from the profile
// when no candidate has its email.
func (p *Pipeline) candidateFor(ctx context.Context, q db.DBTX, e Entry) (CandidateResult, error) {
	if e.CandidateID != nil {
		return p.existing(ctx, q, *e.CandidateID)
	}

	id, err := p.candidates.FindIDByEmail(ctx, q, sanitize.Email(e.Profile.Email))
	switch {
	case err == nil:
		return p.existing(ctx, q, id)
	case !errors.Is(err, candidates.ErrNotFound):
		return CandidateResult{}, err
	}
	return p.createCandidate(ctx, q, *e.Profile)
}

func (p *Pipeline) existing(ctx context.Context, q db.DBTX, id uuid.UUID) (CandidateResult, error) {
	rec, err := p.candidates.Load(ctx, q, id)
	if errors.Is(err, candidates.ErrNotFound) {
		return CandidateResult{}, apperr.NotFound(fmt.Sprintf("candidate %s not found", id))
	}
	if err != nil {
		return CandidateResult{}, err
	}
	return CandidateResult{Record: rec, Age: rec.AgeAt(p.now()), Reused: true}, nil
}

// =============================================================================
// Cohorts
// =============================================================================

// AddCandidatesToProcess applies every entry to a process in one
// transaction and sets the process evaluation headcount to its application
// count. Any failing entry rolls back the whole cohort.
func (p *Pipeline) AddCandidatesToProcess(ctx context.Context, processID uuid.UUID, entries []Entry) (BulkResult, error) {
	if err := p.validateBatch(entries); err != nil {
		return BulkResult{}, err
	}

	var res BulkResult
	err := p.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		proc, err := p.processes.RequireTx(ctx, q, processID)
		if err != nil {
			return err
		}
		res, err = p.addAll(ctx, q, proc, entries)
		return err
	})
	if err != nil {
		return BulkResult{}, p.failed(opAddCandidates, err)
	}

	p.storeCVs(ctx, &res, entries)
	return res, nil
}

// CreateProcessWithCandidates opens a process, seeds its milestone plan and
// applies every entry to it, all in one transaction.
func (p *Pipeline) CreateProcessWithCandidates(ctx context.Context, d processes.Draft, entries []Entry) (BulkResult, error) {
	if err := p.processes.Validate(d); err != nil {
		return BulkResult{}, err
	}
	if err := p.validateBatch(entries); err != nil {
		return BulkResult{}, err
	}

	var res BulkResult
	err := p.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		proc, err := p.processes.CreateTx(ctx, q, d)
		if err != nil {
			return err
		}
		res, err = p.addAll(ctx, q, proc, entries)
		return err
	})
	if err != nil {
		return BulkResult{}, p.failed(opCreateProcess, err)
	}

	p.storeCVs(ctx, &res, entries)
	return res, nil
}

func (p *Pipeline) addAll(ctx context.Context, q db.DBTX, proc processes.Process, entries []Entry) (BulkResult, error) {
	out := BulkResult{Process: proc, Applications: make([]ApplicationResult, 0, len(entries))}
	for i, e := range entries {
		res, err := p.apply(ctx, q, proc.ID, e)
		if err != nil {
			return BulkResult{}, entryError(i, err)
		}
		out.Applications = append(out.Applications, res)
	}

	n, err := p.applications.CountByProcess(ctx, q, proc.ID)
	if err != nil {
		return BulkResult{}, err
	}
	if err := p.processes.SetEvaluationHeadcountTx(ctx, q, proc.ID, n); err != nil {
		return BulkResult{}, err
	}
	out.Process.EvaluationHeadcount = n

	p.afterCommit(ctx, func(context.Context) {
		p.log.Info("cohort onboarded", "process_id", proc.ID, "applications", len(entries), "evaluation_headcount", n)
	})
	return out, nil
}

// =============================================================================
// CVs
// =============================================================================

func (p *Pipeline) storeCVs(ctx context.Context, res *BulkResult, entries []Entry) {
	for i := range res.Applications {
		p.storeCV(ctx, &res.Applications[i], entries[i].CV)
	}
}

// storeCV uploads cv for a committed application. Failures are logged and
// leave CVStored false.
func (p *Pipeline) storeCV(ctx context.Context, res *ApplicationResult, cv *applications.CVUpload) {
	if cv == nil {
		return
	}
	if p.cvs == nil {
		p.log.Warn("cv dropped, storage not configured", "application_id", res.Application.ID)
		return
	}

	rec, err := p.cvs.AttachCV(ctx, res.Application.ID, *cv)
	if err != nil {
		p.log.Error("cv upload failed", "application_id", res.Application.ID, "file_name", cv.FileName, "error", err)
		return
	}
	res.Application = rec
	res.CVStored = true
}

// =============================================================================
// Helpers
// =============================================================================

// afterCommit defers fn to the commit scope, running it at once without one.
func (p *Pipeline) afterCommit(ctx context.Context, fn func(context.Context)) {
	if !db.AfterCommit(ctx, fn) {
		fn(ctx)
	}
}

func (p *Pipeline) failed(op string, err error) error {
	p.log.TransactionRolledBack(op, err)
	return apperr.Ensure(err, op)
}

func duplicateEmail(email string) error {
	return apperr.Conflict(fmt.Sprintf("candidate with email %s already exists", email))
}

func alreadyApplied(email string) error {
	return apperr.Conflict(fmt.Sprintf("candidate %s already applied to this process", email))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
