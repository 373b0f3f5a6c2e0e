package applications

import (
	"context"
	"errors"

	"recruitment_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("application not found")
	ErrDuplicate = errors.New("candidate already applied to process")
)

const candidateProcessKey = "applications_candidate_process_key"

// Repository is the pgx persistence of applications. Every method runs on
// the querier it is given.
type Repository struct{}

// NewRepository creates a Repository.
func NewRepository() *Repository {
	return &Repository{}
}

const applicationColumns = `a.id, a.candidate_id, a.process_id, a.portal_id, a.status_id, a.rating, a.motivation,
	a.salary_expectation, a.availability, a.comment, a.client_response, a.has_cv, a.cv_key, a.created_at, a.updated_at`

const recordSelect = `
	SELECT ` + applicationColumns + `, p.name, s.name,
		concat_ws(' ', NULLIF(c.first_name, ''), NULLIF(c.first_surname, ''), NULLIF(c.second_surname, '')), c.email
	FROM applications a
	JOIN portals p ON p.id = a.portal_id
	JOIN candidate_statuses s ON s.id = a.status_id
	JOIN candidates c ON c.id = a.candidate_id`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r        Record
		response string
	)
	err := row.Scan(
		&r.ID, &r.CandidateID, &r.ProcessID, &r.PortalID, &r.StatusID, &r.Rating, &r.Motivation,
		&r.SalaryExpectation, &r.Availability, &r.Comment, &response, &r.HasCV, &r.CVKey, &r.CreatedAt, &r.UpdatedAt,
		&r.Portal, &r.Status, &r.CandidateName, &r.CandidateEmail,
	)
	r.ClientResponse = ClientResponse(response)
	return r, err
}

// Insert stores a new application. An existing candidate/process pair
// yields ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, q db.DBTX, a Application) (Application, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.ClientResponse == "" {
		a.ClientResponse = ClientPending
	}
	err := q.QueryRow(ctx, `
		INSERT INTO applications (id, candidate_id, process_id, portal_id, status_id, rating, motivation,
			salary_expectation, availability, comment, client_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, a.ID, a.CandidateID, a.ProcessID, a.PortalID, a.StatusID, a.Rating, a.Motivation,
		a.SalaryExpectation, a.Availability, a.Comment, string(a.ClientResponse),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) && db.ConstraintName(err) == candidateProcessKey {
		return Application{}, ErrDuplicate
	}
	return a, err
}

// Exists reports whether the candidate already applied to the process.
func (r *Repository) Exists(ctx context.Context, q db.DBTX, candidateID, processID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM applications WHERE candidate_id = $1 AND process_id = $2)
	`, candidateID, processID).Scan(&exists)
	return exists, err
}

// Load returns one application with names.
func (r *Repository) Load(ctx context.Context, q db.DBTX, id uuid.UUID) (Record, error) {
	rec, err := scanRecord(q.QueryRow(ctx, recordSelect+` WHERE a.id = $1`, id))
	if db.IsNoRows(err) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// CountByProcess returns the number of applications of a process.
func (r *Repository) CountByProcess(ctx context.Context, q db.DBTX, processID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM applications WHERE process_id = $1`, processID).Scan(&n)
	return n, err
}

// UpdateEvaluation overwrites the consultant-editable fields.
func (r *Repository) UpdateEvaluation(ctx context.Context, q db.DBTX, id uuid.UUID, e Evaluation) error {
	return expectRow(q.Exec(ctx, `
		UPDATE applications
		SET rating = $2, motivation = $3, salary_expectation = $4, availability = $5, comment = $6, updated_at = now()
		WHERE id = $1
	`, id, e.Rating, e.Motivation, e.SalaryExpectation, e.Availability, e.Comment))
}

// SetStatus changes the candidate status of an application.
func (r *Repository) SetStatus(ctx context.Context, q db.DBTX, id uuid.UUID, statusID int64) error {
	return expectRow(q.Exec(ctx, `
		UPDATE applications SET status_id = $2, updated_at = now() WHERE id = $1
	`, id, statusID))
}

// SetClientResponse stores the client's response.
func (r *Repository) SetClientResponse(ctx context.Context, q db.DBTX, id uuid.UUID, resp ClientResponse) error {
	return expectRow(q.Exec(ctx, `
		UPDATE applications SET client_response = $2, updated_at = now() WHERE id = $1
	`, id, string(resp)))
}

// SetCV stores the CV pointer of an application.
func (r *Repository) SetCV(ctx context.Context, q db.DBTX, id uuid.UUID, key string) error {
	return expectRow(q.Exec(ctx, `
		UPDATE applications SET has_cv = TRUE, cv_key = $2, updated_at = now() WHERE id = $1
	`, id, key))
}

// Delete removes an application and its evaluations and returns the CV key
// it pointed at.
func (r *Repository) Delete(ctx context.Context, q db.DBTX, id uuid.UUID) (cvKey *string, deleted bool, err error) {
	err = q.QueryRow(ctx, `DELETE FROM applications WHERE id = $1 RETURNING cv_key`, id).Scan(&cvKey)
	if db.IsNoRows(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cvKey, true, nil
}

// ApprovedWithReport reports whether any client-approved application of the
// process has an evaluation whose report status is one of reportStatuses.
func (r *Repository) ApprovedWithReport(ctx context.Context, q db.DBTX, processID uuid.UUID, reportStatuses []string) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM applications a
			JOIN evaluations e ON e.application_id = a.id
			WHERE a.process_id = $1
			  AND a.client_response = $2
			  AND e.report_status = ANY($3)
		)
	`, processID, string(ClientApproved), reportStatuses).Scan(&ok)
	return ok, err
}

func expectRow(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
