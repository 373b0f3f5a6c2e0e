package processes

import (
	"context"
	"errors"
	"time"

	"recruitment_backend/internal/stages"
	"recruitment_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no process has the requested id.
var ErrNotFound = errors.New("process not found")

// Repository is the pgx persistence of processes. Every method runs on the
// querier it is given.
type Repository struct{}

// NewRepository creates a Repository.
func NewRepository() *Repository {
	return &Repository{}
}

const processColumns = `id, client_name, contact_name, contact_email, position_title, service_type, stage, status,
	vacancies, consultant_name, start_date, deadline, evaluation_headcount, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProcess(row scanner) (Process, error) {
	var (
		p           Process
		serviceType string
		stage       int16
		status      string
	)
	err := row.Scan(
		&p.ID, &p.ClientName, &p.ContactName, &p.ContactEmail, &p.PositionTitle, &serviceType, &stage, &status,
		&p.Vacancies, &p.ConsultantName, &p.StartDate, &p.Deadline, &p.EvaluationHeadcount, &p.CreatedAt, &p.UpdatedAt,
	)
	p.ServiceType = stages.ServiceType(serviceType)
	p.Stage = stages.Stage(stage)
	p.Status = Status(status)
	return p, err
}

// Insert stores a new process.
func (r *Repository) Insert(ctx context.Context, q db.DBTX, p Process) (Process, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusInProgress
	}
	return scanProcess(q.QueryRow(ctx, `
		INSERT INTO processes (id, client_name, contact_name, contact_email, position_title, service_type, stage,
			status, vacancies, consultant_name, start_date, deadline, evaluation_headcount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+processColumns,
		p.ID, p.ClientName, p.ContactName, p.ContactEmail, p.PositionTitle, string(p.ServiceType), int16(p.Stage),
		string(p.Status), p.Vacancies, p.ConsultantName, p.StartDate, p.Deadline, p.EvaluationHeadcount,
	))
}

// Get returns one process.
func (r *Repository) Get(ctx context.Context, q db.DBTX, id uuid.UUID) (Process, error) {
	p, err := scanProcess(q.QueryRow(ctx, `SELECT `+processColumns+` FROM processes WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return Process{}, ErrNotFound
	}
	return p, err
}

// GetForUpdate returns one process and locks its row until the transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, q db.DBTX, id uuid.UUID) (Process, error) {
	p, err := scanProcess(q.QueryRow(ctx, `SELECT `+processColumns+` FROM processes WHERE id = $1 FOR UPDATE`, id))
	if db.IsNoRows(err) {
		return Process{}, ErrNotFound
	}
	return p, err
}

// SetStage stores the stage of a process.
func (r *Repository) SetStage(ctx context.Context, q db.DBTX, id uuid.UUID, stage stages.Stage) error {
	return expectRow(q.Exec(ctx, `
		UPDATE processes SET stage = $2, updated_at = now() WHERE id = $1
	`, id, int16(stage)))
}

// SetStatus stores the status of a process.
func (r *Repository) SetStatus(ctx context.Context, q db.DBTX, id uuid.UUID, status Status) error {
	return expectRow(q.Exec(ctx, `
		UPDATE processes SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(status)))
}

// SetEvaluationHeadcount stores how many people the process evaluates.
func (r *Repository) SetEvaluationHeadcount(ctx context.Context, q db.DBTX, id uuid.UUID, n int) error {
	return expectRow(q.Exec(ctx, `
		UPDATE processes SET evaluation_headcount = $2, updated_at = now() WHERE id = $1
	`, id, n))
}

// ListStartedBetween returns the processes whose start date falls in [from, to).
func (r *Repository) ListStartedBetween(ctx context.Context, q db.DBTX, from, to time.Time) ([]Process, error) {
	rows, err := q.Query(ctx, `
		SELECT `+processColumns+`
		FROM processes
		WHERE start_date >= $1 AND start_date < $2
		ORDER BY start_date, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Process
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
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
