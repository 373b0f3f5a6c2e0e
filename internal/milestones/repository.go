package milestones

import (
	"context"
	"errors"
	"time"

	"recruitment_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when no milestone has the requested id.
var ErrNotFound = errors.New("milestone not found")

// Repository is the pgx persistence of milestones. Every method runs on the
// querier it is given.
type Repository struct{}

// NewRepository creates a Repository.
func NewRepository() *Repository {
	return &Repository{}
}

const milestoneColumns = `id, process_id, name, start_trigger, duration_days, warning_days, position,
	base_date, due_date, completed_at, status_flag`

// InsertMany stores milestones in one batch.
func (r *Repository) InsertMany(ctx context.Context, q db.DBTX, ms []Milestone) error {
	if len(ms) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range ms {
		batch.Queue(`
			INSERT INTO milestones (id, process_id, name, start_trigger, duration_days, warning_days, position, base_date, due_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, m.ID, m.ProcessID, m.Name, string(m.Trigger), m.DurationDays, m.WarningDays, m.Position, m.BaseDate, m.DueDate)
	}
	return db.SendBatch(ctx, q, batch)
}

// Get returns one milestone.
func (r *Repository) Get(ctx context.Context, q db.DBTX, id uuid.UUID) (Milestone, error) {
	rows, err := q.Query(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = $1`, id)
	if err != nil {
		return Milestone{}, err
	}
	ms, err := collect(rows)
	if err != nil {
		return Milestone{}, err
	}
	if len(ms) == 0 {
		return Milestone{}, ErrNotFound
	}
	return ms[0], nil
}

// ListByProcess returns the milestones of a process in timeline order.
func (r *Repository) ListByProcess(ctx context.Context, q db.DBTX, processID uuid.UUID) ([]Milestone, error) {
	rows, err := q.Query(ctx, `
		SELECT `+milestoneColumns+`
		FROM milestones
		WHERE process_id = $1
		ORDER BY position, name
	`, processID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListForProcessesStartedBetween returns the milestones of every process
// whose start date falls in [from, to).
func (r *Repository) ListForProcessesStartedBetween(ctx context.Context, q db.DBTX, from, to time.Time) ([]Milestone, error) {
	rows, err := q.Query(ctx, `
		SELECT m.id, m.process_id, m.name, m.start_trigger, m.duration_days, m.warning_days, m.position,
			m.base_date, m.due_date, m.completed_at, m.status_flag
		FROM milestones m
		JOIN processes p ON p.id = m.process_id
		WHERE p.start_date >= $1 AND p.start_date < $2
		ORDER BY m.process_id, m.position
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// MarkCompleted sets the completion timestamp of a milestone that has none.
// It reports whether a row changed.
func (r *Repository) MarkCompleted(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE milestones
		SET completed_at = $2
		WHERE id = $1 AND completed_at IS NULL
	`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetAnchor stores the base and due dates of a milestone.
func (r *Repository) SetAnchor(ctx context.Context, q db.DBTX, m Milestone) error {
	_, err := q.Exec(ctx, `
		UPDATE milestones
		SET base_date = $2, due_date = $3
		WHERE id = $1
	`, m.ID, m.BaseDate, m.DueDate)
	return err
}

func collect(rows pgx.Rows) ([]Milestone, error) {
	defer rows.Close()

	var out []Milestone
	for rows.Next() {
		var (
			m       Milestone
			trigger string
		)
		if err := rows.Scan(
			&m.ID,
			&m.ProcessID,
			&m.Name,
			&trigger,
			&m.DurationDays,
			&m.WarningDays,
			&m.Position,
			&m.BaseDate,
			&m.DueDate,
			&m.CompletedAt,
			&m.StatusFlag,
		); err != nil {
			return nil, err
		}
		m.Trigger = Trigger(trigger)
		out = append(out, m)
	}
	return out, rows.Err()
}
