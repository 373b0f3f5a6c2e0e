package reference

import (
	"context"
	"errors"
	"fmt"

	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"
	"recruitment_backend/platform/sanitize"
)

const (
	opResolve = "reference.Resolve"
	opLookup  = "reference.Lookup"
	opName    = "reference.Name"
)

// Cache remembers committed (kind, name) → id pairs.
type Cache interface {
	Get(ctx context.Context, kind Kind, name string) (int64, bool, error)
	Set(ctx context.Context, kind Kind, name string, id int64) error
}

// Resolver is the find-or-create accessor for reference entities. Every call
// runs on the querier it is given, so rows it creates commit or roll back with
// the caller's transaction.
type Resolver struct {
	store Store
	cache Cache
	log   *logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables a read-through cache. Entries are written only after the
// enclosing transaction commits.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// NewResolver creates a Resolver over store.
func NewResolver(store Store, log *logger.Logger, opts ...Option) *Resolver {
	r := &Resolver{store: store, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the id of the row named name, creating it when absent.
// Seeded kinds are looked up only.
func (r *Resolver) Resolve(ctx context.Context, q db.DBTX, kind Kind, name string) (int64, error) {
	key := sanitize.Key(name)
	if key == "" {
		return 0, apperr.Validation(kind.String() + " name is required").WithOp(opResolve)
	}
	if kind.Seeded() {
		return r.Lookup(ctx, q, kind, key)
	}
	return r.findOrCreate(ctx, q, kind, key, nil)
}

// ResolveOptional resolves name when it is not blank; a blank name yields nil.
func (r *Resolver) ResolveOptional(ctx context.Context, q db.DBTX, kind Kind, name string) (*int64, error) {
	if sanitize.Key(name) == "" {
		return nil, nil
	}
	id, err := r.Resolve(ctx, q, kind, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ResolveCommune resolves a commune, attaching region to it when the commune
// has to be created. A blank commune yields nil. An existing commune is
// returned as is, whatever region it belongs to.
func (r *Resolver) ResolveCommune(ctx context.Context, q db.DBTX, commune, region string) (*int64, error) {
	key := sanitize.Key(commune)
	if key == "" {
		return nil, nil
	}

	if id, ok := r.cached(ctx, KindCommune, key); ok {
		return &id, nil
	}

	regionID, err := r.ResolveOptional(ctx, q, KindRegion, region)
	if err != nil {
		return nil, err
	}

	id, err := r.findOrCreate(ctx, q, KindCommune, key, regionID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Lookup returns the id of an existing row. A missing seeded row is a
// configuration conflict; any other missing row is not found.
func (r *Resolver) Lookup(ctx context.Context, q db.DBTX, kind Kind, name string) (int64, error) {
	key := sanitize.Key(name)
	if key == "" {
		return 0, apperr.Validation(kind.String() + " name is required").WithOp(opLookup)
	}
	if id, ok := r.cached(ctx, kind, key); ok {
		return id, nil
	}

	id, err := r.store.Find(ctx, q, kind, key)
	switch {
	case errors.Is(err, ErrNotFound) && kind.Seeded():
		return 0, apperr.Conflict(fmt.Sprintf("%s %q is not configured", kind, key)).WithOp(opLookup)
	case errors.Is(err, ErrNotFound):
		return 0, apperr.NotFound(fmt.Sprintf("%s %q not found", kind, key)).WithOp(opLookup)
	case err != nil:
		return 0, apperr.Wrap(apperr.KindInternal, "reference lookup failed", err).WithOp(opLookup)
	}

	r.remember(ctx, kind, key, id)
	return id, nil
}

// Name returns the display name of a row.
func (r *Resolver) Name(ctx context.Context, q db.DBTX, kind Kind, id int64) (string, error) {
	name, err := r.store.Name(ctx, q, kind, id)
	if errors.Is(err, ErrNotFound) {
		return "", apperr.NotFound(fmt.Sprintf("%s %d not found", kind, id)).WithOp(opName)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "reference name lookup failed", err).WithOp(opName)
	}
	return name, nil
}

func (r *Resolver) findOrCreate(ctx context.Context, q db.DBTX, kind Kind, key string, parentID *int64) (int64, error) {
	if id, ok := r.cached(ctx, kind, key); ok {
		return id, nil
	}

	id, err := r.store.Find(ctx, q, kind, key)
	if err == nil {
		r.remember(ctx, kind, key, id)
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, apperr.Wrap(apperr.KindInternal, "reference lookup failed", err).WithOp(opResolve)
	}

	id, err = r.store.Insert(ctx, q, kind, key, parentID)
	if err == nil {
		r.log.Debug("reference created", "kind", kind.String(), "name", key, "id", id)
		r.remember(ctx, kind, key, id)
		return id, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return 0, apperr.Wrap(apperr.KindInternal, "reference insert failed", err).WithOp(opResolve)
	}

	// Lost the race against a concurrent insert of the same name.
	id, err = r.store.Find(ctx, q, kind, key)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "reference read after duplicate insert failed", err).WithOp(opResolve)
	}
	r.remember(ctx, kind, key, id)
	return id, nil
}

func (r *Resolver) cached(ctx context.Context, kind Kind, key string) (int64, bool) {
	if r.cache == nil {
		return 0, false
	}
	id, ok, err := r.cache.Get(ctx, kind, key)
	if err != nil {
		r.log.Warn("reference cache read failed", "kind", kind.String(), "name", key, "error", err)
		return 0, false
	}
	return id, ok
}

func (r *Resolver) remember(ctx context.Context, kind Kind, key string, id int64) {
	if r.cache == nil {
		return
	}
	db.AfterCommit(ctx, func(ctx context.Context) {
		if err := r.cache.Set(ctx, kind, key, id); err != nil {
			r.log.Warn("reference cache write failed", "kind", kind.String(), "name", key, "error", err)
		}
	})
}
