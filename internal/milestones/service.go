package milestones

import (
	"context"
	"errors"
	"time"

	"recruitment_backend/internal/stages"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	InsertMany(ctx context.Context, q db.DBTX, ms []Milestone) error
	Get(ctx context.Context, q db.DBTX, id uuid.UUID) (Milestone, error)
	ListByProcess(ctx context.Context, q db.DBTX, processID uuid.UUID) ([]Milestone, error)
	MarkCompleted(ctx context.Context, q db.DBTX, id uuid.UUID, at time.Time) (bool, error)
	SetAnchor(ctx context.Context, q db.DBTX, m Milestone) error
}

// Entry is a milestone as shown on the process timeline.
type Entry struct {
	Milestone
	Status    Status
	InWarning bool
	// DaysLeft is nil when the milestone has no due date.
	DaysLeft *int
}

// Service reads and updates the milestones of processes.
type Service struct {
	store Store
	q     db.DBTX
	log   *logger.Logger
}

// NewService creates a Service. q is used for operations that are not part
// of a caller's transaction.
func NewService(store Store, q db.DBTX, log *logger.Logger) *Service {
	return &Service{store: store, q: q, log: log}
}

// Timeline classifies the milestones of a process at now.
func (s *Service) Timeline(ctx context.Context, processID uuid.UUID, now time.Time) ([]Entry, error) {
	ms, err := s.store.ListByProcess(ctx, s.q, processID)
	if err != nil {
		return nil, apperr.Ensure(err, "milestones.Timeline")
	}
	return BuildTimeline(ms, now), nil
}

// BuildTimeline classifies ms against one now.
func BuildTimeline(ms []Milestone, now time.Time) []Entry {
	out := make([]Entry, 0, len(ms))
	for _, m := range ms {
		e := Entry{
			Milestone: m,
			Status:    Classify(m, now),
			InWarning: InWarningWindow(m, now),
		}
		if m.DueDate != nil {
			d := DaysUntil(*m.DueDate, now)
			e.DaysLeft = &d
		}
		out = append(out, e)
	}
	return out
}

// Complete marks a milestone done at at. Completing a completed milestone
// keeps its original timestamp.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, at time.Time) (Milestone, error) {
	changed, err := s.store.MarkCompleted(ctx, s.q, id, at)
	if err != nil {
		return Milestone{}, apperr.Ensure(err, "milestones.Complete")
	}

	m, err := s.store.Get(ctx, s.q, id)
	if errors.Is(err, ErrNotFound) {
		return Milestone{}, apperr.NotFound("milestone not found").WithOp("milestones.Complete")
	}
	if err != nil {
		return Milestone{}, apperr.Ensure(err, "milestones.Complete")
	}

	if changed {
		s.log.Info("milestone completed", "milestone_id", id, "process_id", m.ProcessID, "name", m.Name)
	}
	return m, nil
}

// SeedProcess stores the milestone plan of a new process on q.
func (s *Service) SeedProcess(ctx context.Context, q db.DBTX, processID uuid.UUID, t stages.ServiceType, start time.Time) ([]Milestone, error) {
	ms := Seed(processID, t, start)
	if err := s.store.InsertMany(ctx, q, ms); err != nil {
		return nil, apperr.Ensure(err, "milestones.SeedProcess")
	}
	return ms, nil
}

// OpenBefore returns the anchored, unfinished milestones fired by any stage
// below target. Milestones anchored on the process start belong to module 1,
// so they gate a process that has not entered module 1 yet as well.
func (s *Service) OpenBefore(ctx context.Context, q db.DBTX, processID uuid.UUID, target stages.Stage) ([]Milestone, error) {
	ms, err := s.store.ListByProcess(ctx, q, processID)
	if err != nil {
		return nil, apperr.Ensure(err, "milestones.OpenBefore")
	}
	var open []Milestone
	for _, m := range ms {
		stage, ok := m.Trigger.Stage()
		if ok && stage < target && m.BaseDate != nil && !m.Completed() {
			open = append(open, m)
		}
	}
	return open, nil
}

// AnchorEntered anchors to date the not yet anchored milestones fired by the
// stages after from up to and including to. Stages skipped on the way are
// anchored too, so their milestones gate the next move. Runs on the caller's
// querier.
func (s *Service) AnchorEntered(ctx context.Context, q db.DBTX, processID uuid.UUID, from, to stages.Stage, date time.Time) ([]Milestone, error) {
	ms, err := s.store.ListByProcess(ctx, q, processID)
	if err != nil {
		return nil, apperr.Ensure(err, "milestones.AnchorEntered")
	}

	var anchored []Milestone
	for _, m := range ms {
		stage, ok := m.Trigger.Stage()
		if !ok || stage <= from || stage > to || m.BaseDate != nil || m.Completed() {
			continue
		}
		m = Anchor(m, date)
		if err := s.store.SetAnchor(ctx, q, m); err != nil {
			return nil, apperr.Ensure(err, "milestones.AnchorEntered")
		}
		anchored = append(anchored, m)
	}
	return anchored, nil
}
