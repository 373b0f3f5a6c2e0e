package candidates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recruitment_backend/internal/reference"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"
	"recruitment_backend/platform/phone"
	"recruitment_backend/platform/sanitize"
	"recruitment_backend/platform/validator"

	"github.com/google/uuid"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	Get(ctx context.Context, q db.DBTX, id uuid.UUID) (Candidate, error)
	Load(ctx context.Context, q db.DBTX, id uuid.UUID) (Record, error)
	FindIDByEmail(ctx context.Context, q db.DBTX, email string) (uuid.UUID, error)
	Update(ctx context.Context, q db.DBTX, c Candidate) error
	CountApplications(ctx context.Context, q db.DBTX, id uuid.UUID) (int, error)
	Delete(ctx context.Context, q db.DBTX, id uuid.UUID) (bool, error)
}

// UpdateInput is a consultant edit. Nil fields are left unchanged; an empty
// reference name clears the reference. Region qualifies Commune and is
// rejected on its own.
type UpdateInput struct {
	FirstName     *string    `validate:"omitempty,notblank,max=100"`
	FirstSurname  *string    `validate:"omitempty,max=100"`
	SecondSurname *string    `validate:"omitempty,max=100"`
	NationalID    *string    `validate:"omitempty,max=20"`
	Email         *string    `validate:"omitempty,email,max=254"`
	Phone         *string    `validate:"omitempty,notblank,max=30"`
	BirthDate     *time.Time `validate:"omitempty"`
	HasDisability *bool      `validate:"omitempty"`
	Commune       *string    `validate:"omitempty,max=100"`
	Region        *string    `validate:"omitempty,max=100"`
	Nationality   *string    `validate:"omitempty,max=100"`
	Sector        *string    `validate:"omitempty,max=100"`
}

// Service reads, edits and deletes candidates.
type Service struct {
	store       Store
	tx          db.Transactor
	q           db.DBTX
	resolver    *reference.Resolver
	val         *validator.Validator
	phoneRegion string
	log         *logger.Logger
}

// NewService creates a Service. q is used for reads outside transactions.
func NewService(store Store, tx db.Transactor, q db.DBTX, resolver *reference.Resolver, val *validator.Validator, phoneRegion string, log *logger.Logger) *Service {
	return &Service{store: store, tx: tx, q: q, resolver: resolver, val: val, phoneRegion: phoneRegion, log: log}
}

// Get returns the loaded candidate.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	rec, err := s.store.Load(ctx, s.q, id)
	if errors.Is(err, ErrNotFound) {
		return Record{}, apperr.NotFound("candidate not found").WithOp("candidates.Get")
	}
	if err != nil {
		return Record{}, apperr.Ensure(err, "candidates.Get")
	}
	return rec, nil
}

// Update applies a consultant edit in one transaction and returns the
// reloaded candidate.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Record, error) {
	if err := s.val.Struct(in); err != nil {
		return Record{}, err
	}
	if in.Region != nil && in.Commune == nil {
		return Record{}, apperr.Validation("region can only be changed together with the commune").
			WithDetails(map[string]string{"Commune": "required_with"})
	}

	var rec Record
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		c, err := s.store.Get(ctx, q, id)
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("candidate not found")
		}
		if err != nil {
			return err
		}

		if err := s.apply(ctx, q, &c, in); err != nil {
			return err
		}

		err = s.store.Update(ctx, q, c)
		if errors.Is(err, ErrDuplicateEmail) {
			return apperr.Conflict(fmt.Sprintf("candidate with email %s already exists", c.Email))
		}
		if err != nil {
			return err
		}

		rec, err = s.store.Load(ctx, q, id)
		return err
	})
	if err != nil {
		return Record{}, apperr.Ensure(err, "candidates.Update")
	}

	s.log.Info("candidate updated", "candidate_id", id)
	return rec, nil
}

func (s *Service) apply(ctx context.Context, q db.DBTX, c *Candidate, in UpdateInput) error {
	if in.FirstName != nil {
		c.FirstName = sanitize.Name(*in.FirstName)
	}
	if in.FirstSurname != nil {
		c.FirstSurname = sanitize.Name(*in.FirstSurname)
	}
	if in.SecondSurname != nil {
		c.SecondSurname = sanitize.Name(*in.SecondSurname)
	}
	if in.NationalID != nil {
		c.NationalID = nonEmpty(sanitize.Key(*in.NationalID))
	}
	if in.Phone != nil {
		c.Phone = phone.NormalizeE164(*in.Phone, s.phoneRegion)
	}
	if in.BirthDate != nil {
		c.BirthDate = in.BirthDate
	}
	if in.HasDisability != nil {
		c.HasDisability = *in.HasDisability
	}

	if in.Email != nil {
		email := sanitize.Email(*in.Email)
		if email != c.Email {
			other, err := s.store.FindIDByEmail(ctx, q, email)
			switch {
			case err == nil && other != c.ID:
				return apperr.Conflict(fmt.Sprintf("candidate with email %s already exists", email))
			case err != nil && !errors.Is(err, ErrNotFound):
				return err
			}
			c.Email = email
		}
	}

	var err error
	if in.Commune != nil {
		region := ""
		if in.Region != nil {
			region = *in.Region
		}
		if c.CommuneID, err = s.resolver.ResolveCommune(ctx, q, *in.Commune, region); err != nil {
			return err
		}
	}
	if in.Nationality != nil {
		if c.NationalityID, err = s.resolver.ResolveOptional(ctx, q, reference.KindNationality, *in.Nationality); err != nil {
			return err
		}
	}
	if in.Sector != nil {
		if c.SectorID, err = s.resolver.ResolveOptional(ctx, q, reference.KindSector, *in.Sector); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a candidate that no application references.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		n, err := s.store.CountApplications(ctx, q, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict(fmt.Sprintf("candidate has %d application(s) and cannot be deleted", n))
		}

		deleted, err := s.store.Delete(ctx, q, id)
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("candidate is referenced by an application and cannot be deleted")
		}
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.NotFound("candidate not found")
		}
		return nil
	})
	if err != nil {
		return apperr.Ensure(err, "candidates.Delete")
	}

	s.log.Info("candidate deleted", "candidate_id", id)
	return nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
