package processes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recruitment_backend/internal/milestones"
	"recruitment_backend/internal/stages"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"
	"recruitment_backend/platform/sanitize"
	"recruitment_backend/platform/validator"

	"github.com/google/uuid"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	Insert(ctx context.Context, q db.DBTX, p Process) (Process, error)
	Get(ctx context.Context, q db.DBTX, id uuid.UUID) (Process, error)
	GetForUpdate(ctx context.Context, q db.DBTX, id uuid.UUID) (Process, error)
	SetStage(ctx context.Context, q db.DBTX, id uuid.UUID, stage stages.Stage) error
	SetStatus(ctx context.Context, q db.DBTX, id uuid.UUID, status Status) error
	SetEvaluationHeadcount(ctx context.Context, q db.DBTX, id uuid.UUID, n int) error
}

// SignalSource reads the live facts the module 5 gate depends on.
// *applications.Repository implements it.
type SignalSource interface {
	ApprovedWithReport(ctx context.Context, q db.DBTX, processID uuid.UUID, reportStatuses []string) (bool, error)
}

// Service opens processes and moves them through the module workflow.
type Service struct {
	store      Store
	signals    SignalSource
	milestones *milestones.Service
	tx         db.Transactor
	q          db.DBTX
	val        *validator.Validator
	log        *logger.Logger
}

// NewService creates a Service. q is used for reads outside transactions.
func NewService(store Store, signals SignalSource, ms *milestones.Service, tx db.Transactor, q db.DBTX, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{store: store, signals: signals, milestones: ms, tx: tx, q: q, val: val, log: log}
}

// Validate checks a draft without touching the database.
func (s *Service) Validate(d Draft) error {
	if err := s.val.Struct(d); err != nil {
		return err
	}
	if d.Deadline != nil && milestones.Date(*d.Deadline).Before(milestones.Date(d.StartDate)) {
		return apperr.Validation("deadline is before start date").WithDetails(map[string]string{"Deadline": "gtefield"})
	}
	return nil
}

// Create opens a process and seeds its milestone plan in one transaction.
func (s *Service) Create(ctx context.Context, d Draft) (Process, error) {
	if err := s.Validate(d); err != nil {
		return Process{}, err
	}
	var p Process
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		var err error
		p, err = s.CreateTx(ctx, q, d)
		return err
	})
	if err != nil {
		return Process{}, apperr.Ensure(err, "processes.Create")
	}
	return p, nil
}

// CreateTx opens a process on the caller's transaction. The draft must have
// been validated.
func (s *Service) CreateTx(ctx context.Context, q db.DBTX, d Draft) (Process, error) {
	serviceType, err := stages.ParseServiceType(d.ServiceType)
	if err != nil {
		return Process{}, err
	}

	start := milestones.Date(d.StartDate)
	var deadline *time.Time
	if d.Deadline != nil {
		dl := milestones.Date(*d.Deadline)
		deadline = &dl
	}

	p, err := s.store.Insert(ctx, q, Process{
		ClientName:     sanitize.Name(d.ClientName),
		ContactName:    sanitize.Name(d.ContactName),
		ContactEmail:   sanitize.Email(d.ContactEmail),
		PositionTitle:  sanitize.Name(d.PositionTitle),
		ServiceType:    serviceType,
		Stage:          stages.StageNone,
		Status:         StatusInProgress,
		Vacancies:      d.Vacancies,
		ConsultantName: sanitize.Name(d.ConsultantName),
		StartDate:      start,
		Deadline:       deadline,
	})
	if err != nil {
		return Process{}, err
	}

	if _, err := s.milestones.SeedProcess(ctx, q, p.ID, serviceType, start); err != nil {
		return Process{}, err
	}

	logCreated := func(context.Context) {
		s.log.Info("process created", "process_id", p.ID, "service_type", string(serviceType), "client", p.ClientName)
	}
	if !db.AfterCommit(ctx, logCreated) {
		logCreated(ctx)
	}
	return p, nil
}

// Get returns one process.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Process, error) {
	p, err := s.store.Get(ctx, s.q, id)
	if errors.Is(err, ErrNotFound) {
		return Process{}, apperr.NotFound("process not found").WithOp("processes.Get")
	}
	if err != nil {
		return Process{}, apperr.Ensure(err, "processes.Get")
	}
	return p, nil
}

// RequireTx returns the process on the caller's querier, locking its row.
// A missing process is a not-found error.
func (s *Service) RequireTx(ctx context.Context, q db.DBTX, id uuid.UUID) (Process, error) {
	p, err := s.store.GetForUpdate(ctx, q, id)
	if errors.Is(err, ErrNotFound) {
		return Process{}, apperr.NotFound("process not found")
	}
	return p, err
}

// SetEvaluationHeadcountTx stores the evaluation headcount on the caller's
// transaction.
func (s *Service) SetEvaluationHeadcountTx(ctx context.Context, q db.DBTX, id uuid.UUID, n int) error {
	return s.store.SetEvaluationHeadcount(ctx, q, id, n)
}

// AdvanceStage moves a process to target. Moving forward requires every
// anchored milestone of the stages below target to be completed, and anchors
// the milestones of target and of any skipped stage on now's date. Moving to
// the current stage is a no-op.
func (s *Service) AdvanceStage(ctx context.Context, id uuid.UUID, target stages.Stage, now time.Time) (Process, error) {
	var (
		p    Process
		from stages.Stage
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		var err error
		p, err = s.RequireTx(ctx, q, id)
		if err != nil {
			return err
		}
		from = p.Stage
		if p.Stage == target {
			return nil
		}

		var sig stages.Signals
		if target == stages.StageModule5 {
			if sig, err = s.readSignals(ctx, q, p.ID); err != nil {
				return err
			}
		}
		if err := stages.ValidateAdvance(p.ServiceType, p.Stage, target, sig); err != nil {
			return err
		}

		forward := target > p.Stage
		if forward {
			open, err := s.milestones.OpenBefore(ctx, q, p.ID, target)
			if err != nil {
				return err
			}
			if len(open) > 0 {
				names := make([]string, 0, len(open))
				for _, m := range open {
					names = append(names, m.Name)
				}
				return apperr.Conflict(fmt.Sprintf("milestones before %s are not completed: %s", target.Label(), strings.Join(names, ", "))).
					WithDetails(map[string][]string{"pending_milestones": names})
			}
		}

		if err := s.store.SetStage(ctx, q, p.ID, target); err != nil {
			return err
		}
		if forward {
			if _, err := s.milestones.AnchorEntered(ctx, q, p.ID, from, target, now); err != nil {
				return err
			}
		}

		p.Stage = target
		return nil
	})
	if err != nil {
		return Process{}, apperr.Ensure(err, "processes.AdvanceStage")
	}
	if from != target {
		s.log.Info("stage advanced", "process_id", p.ID, "from", from.Label(), "to", target.Label())
	}
	return p, nil
}

// SetStatus changes the administrative status of a process. Status does not
// affect which modules are available.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, raw string) (Process, error) {
	status, err := ParseStatus(raw)
	if err != nil {
		return Process{}, err
	}

	if err := s.store.SetStatus(ctx, s.q, id, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Process{}, apperr.NotFound("process not found").WithOp("processes.SetStatus")
		}
		return Process{}, apperr.Ensure(err, "processes.SetStatus")
	}

	s.log.Info("process status changed", "process_id", id, "status", string(status))
	return s.Get(ctx, id)
}

// ModuleView computes which modules of the process page are available.
func (s *Service) ModuleView(ctx context.Context, id uuid.UUID) (stages.View, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return stages.View{}, err
	}

	var sig stages.Signals
	if p.Stage == stages.StageModule4 && p.ServiceType.Offers(5) {
		if sig, err = s.readSignals(ctx, s.q, p.ID); err != nil {
			return stages.View{}, apperr.Ensure(err, "processes.ModuleView")
		}
	}
	return stages.Evaluate(p.ServiceType, p.Stage, sig), nil
}

// Timeline classifies the milestones of a process at now.
func (s *Service) Timeline(ctx context.Context, id uuid.UUID, now time.Time) ([]milestones.Entry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.milestones.Timeline(ctx, id, now)
}

func (s *Service) readSignals(ctx context.Context, q db.DBTX, processID uuid.UUID) (stages.Signals, error) {
	ok, err := s.signals.ApprovedWithReport(ctx, q, processID, stages.ClassifiedReportStatuses)
	if err != nil {
		return stages.Signals{}, err
	}
	return stages.Signals{ApprovedWithReport: ok}, nil
}
