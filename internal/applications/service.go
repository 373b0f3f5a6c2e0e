package applications

import (
	"context"
	"errors"
	"fmt"
	"io"

	"recruitment_backend/internal/reference"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"
	"recruitment_backend/platform/sanitize"
	"recruitment_backend/platform/validator"

	"github.com/google/uuid"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	Load(ctx context.Context, q db.DBTX, id uuid.UUID) (Record, error)
	UpdateEvaluation(ctx context.Context, q db.DBTX, id uuid.UUID, e Evaluation) error
	SetStatus(ctx context.Context, q db.DBTX, id uuid.UUID, statusID int64) error
	SetClientResponse(ctx context.Context, q db.DBTX, id uuid.UUID, resp ClientResponse) error
	SetCV(ctx context.Context, q db.DBTX, id uuid.UUID, key string) error
	Delete(ctx context.Context, q db.DBTX, id uuid.UUID) (cvKey *string, deleted bool, err error)
}

// CVStore keeps CV files. *cvstorage.MinIOStore implements it.
type CVStore interface {
	Put(ctx context.Context, applicationID uuid.UUID, fileName, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// CVUpload is a CV file to attach to an application.
type CVUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Size        int64
}

// EvaluationInput is a consultant's evaluation edit. Nil fields are left
// unchanged.
type EvaluationInput struct {
	Rating            *int    `validate:"omitempty,min=1,max=5"`
	Motivation        *string `validate:"omitempty,max=4000"`
	SalaryExpectation *string `validate:"omitempty,max=200"`
	Availability      *string `validate:"omitempty,max=200"`
	Comment           *string `validate:"omitempty,max=4000"`
}

// ValidateRating rejects ratings outside 1..5. A nil rating is valid.
func ValidateRating(rating *int) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return apperr.Validation(fmt.Sprintf("rating must be between 1 and 5, got %d", *rating)).
			WithDetails(map[string]string{"Rating": "range"})
	}
	return nil
}

// Service updates applications after they were created.
type Service struct {
	store    Store
	tx       db.Transactor
	q        db.DBTX
	resolver *reference.Resolver
	cvs      CVStore
	val      *validator.Validator
	log      *logger.Logger
}

// NewService creates a Service. cvs may be nil when CV storage is disabled.
func NewService(store Store, tx db.Transactor, q db.DBTX, resolver *reference.Resolver, cvs CVStore, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{store: store, tx: tx, q: q, resolver: resolver, cvs: cvs, val: val, log: log}
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	rec, err := s.load(ctx, s.q, id)
	if err != nil {
		return Record{}, apperr.Ensure(err, "applications.Get")
	}
	return rec, nil
}

func (s *Service) load(ctx context.Context, q db.DBTX, id uuid.UUID) (Record, error) {
	rec, err := s.store.Load(ctx, q, id)
	if errors.Is(err, ErrNotFound) {
		return Record{}, apperr.NotFound("application not found")
	}
	return rec, err
}

// UpdateEvaluation stores the consultant's rating and notes. Input is
// validated before anything is written.
func (s *Service) UpdateEvaluation(ctx context.Context, id uuid.UUID, in EvaluationInput) (Record, error) {
	if err := ValidateRating(in.Rating); err != nil {
		return Record{}, err
	}
	if err := s.val.Struct(in); err != nil {
		return Record{}, err
	}

	var rec Record
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		cur, err := s.load(ctx, q, id)
		if err != nil {
			return err
		}

		e := Evaluation{
			Rating:            cur.Rating,
			Motivation:        cur.Motivation,
			SalaryExpectation: cur.SalaryExpectation,
			Availability:      cur.Availability,
			Comment:           cur.Comment,
		}
		if in.Rating != nil {
			e.Rating = in.Rating
		}
		if in.Motivation != nil {
			e.Motivation = sanitize.Text(*in.Motivation)
		}
		if in.SalaryExpectation != nil {
			e.SalaryExpectation = sanitize.Text(*in.SalaryExpectation)
		}
		if in.Availability != nil {
			e.Availability = sanitize.Text(*in.Availability)
		}
		if in.Comment != nil {
			e.Comment = sanitize.Text(*in.Comment)
		}

		if err := s.store.UpdateEvaluation(ctx, q, id, e); err != nil {
			return err
		}
		rec, err = s.load(ctx, q, id)
		return err
	})
	if err != nil {
		return Record{}, apperr.Ensure(err, "applications.UpdateEvaluation")
	}
	return rec, nil
}

// ChangeStatus moves an application to status following the status workflow.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (Record, error) {
	status = sanitize.Name(status)
	if !IsKnownStatus(status) {
		return Record{}, apperr.Validation(fmt.Sprintf("unknown candidate status %q", status)).WithOp("applications.ChangeStatus")
	}

	var rec Record
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		cur, err := s.load(ctx, q, id)
		if err != nil {
			return err
		}
		if err := s.moveTo(ctx, q, cur, status); err != nil {
			return err
		}
		rec, err = s.load(ctx, q, id)
		return err
	})
	if err != nil {
		return Record{}, apperr.Ensure(err, "applications.ChangeStatus")
	}

	s.log.Info("application status changed", "application_id", id, "status", status)
	return rec, nil
}

func (s *Service) moveTo(ctx context.Context, q db.DBTX, cur Record, status string) error {
	if cur.Status == status {
		return nil
	}
	if !CanTransition(cur.Status, status) {
		return apperr.Conflict(fmt.Sprintf("cannot move application from %s to %s", cur.Status, status))
	}
	statusID, err := s.resolver.Lookup(ctx, q, reference.KindCandidateStatus, status)
	if err != nil {
		return err
	}
	return s.store.SetStatus(ctx, q, cur.ID, statusID)
}

// RecordClientResponse stores the client's verdict. An approval or rejection
// also moves the candidate status accordingly.
func (s *Service) RecordClientResponse(ctx context.Context, id uuid.UUID, response string) (Record, error) {
	resp, err := ParseClientResponse(response)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		cur, err := s.load(ctx, q, id)
		if err != nil {
			return err
		}
		if status, ok := resp.Status(); ok {
			if err := s.moveTo(ctx, q, cur, status); err != nil {
				return err
			}
		}
		if err := s.store.SetClientResponse(ctx, q, id, resp); err != nil {
			return err
		}
		rec, err = s.load(ctx, q, id)
		return err
	})
	if err != nil {
		return Record{}, apperr.Ensure(err, "applications.RecordClientResponse")
	}

	s.log.Info("client response recorded", "application_id", id, "response", string(resp))
	return rec, nil
}

// Delete removes an application. Its stored CV is removed once the row is
// gone; a failed removal is logged and does not fail the delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	cvKey, deleted, err := s.store.Delete(ctx, s.q, id)
	if err != nil {
		return apperr.Ensure(err, "applications.Delete")
	}
	if !deleted {
		return apperr.NotFound("application not found").WithOp("applications.Delete")
	}
	s.log.Info("application deleted", "application_id", id)
	if cvKey != nil {
		s.removeCV(ctx, id, *cvKey)
	}
	return nil
}

// AttachCV uploads a CV and points the application at it. The upload runs
// outside any transaction; only the pointer write touches the database. A
// replaced CV is removed from storage, and so is the new upload when the
// pointer cannot be saved.
func (s *Service) AttachCV(ctx context.Context, id uuid.UUID, cv CVUpload) (Record, error) {
	if s.cvs == nil {
		return Record{}, apperr.Forbidden("CV storage is not configured").WithOp("applications.AttachCV")
	}
	cur, err := s.load(ctx, s.q, id)
	if err != nil {
		return Record{}, apperr.Ensure(err, "applications.AttachCV")
	}

	key, err := s.cvs.Put(ctx, id, cv.FileName, cv.ContentType, cv.Body, cv.Size)
	if err != nil {
		if apperr.GetKind(err) != apperr.KindUnknown {
			return Record{}, err
		}
		return Record{}, apperr.Wrap(apperr.KindInternal, "CV upload failed", err).WithOp("applications.AttachCV")
	}

	if err := s.store.SetCV(ctx, s.q, id, key); err != nil {
		s.log.Error("cv pointer not saved", "application_id", id, "cv_key", key, "error", err)
		s.removeCV(ctx, id, key)
		return Record{}, apperr.Ensure(err, "applications.AttachCV")
	}

	s.log.Info("cv attached", "application_id", id, "cv_key", key)
	if cur.CVKey != nil && *cur.CVKey != key {
		s.removeCV(ctx, id, *cur.CVKey)
	}
	return s.Get(ctx, id)
}

func (s *Service) removeCV(ctx context.Context, id uuid.UUID, key string) {
	if s.cvs == nil {
		s.log.Warn("cv left in storage, storage is not configured", "application_id", id, "cv_key", key)
		return
	}
	if err := s.cvs.Delete(ctx, key); err != nil {
		s.log.Warn("cv removal failed", "application_id", id, "cv_key", key, "error", err)
	}
}
