package reference

import (
	"context"
	"errors"
	"fmt"

	"recruitment_backend/platform/db"
)

var (
	// ErrNotFound is returned by Store.Find when no row has the name.
	ErrNotFound = errors.New("reference not found")
	// ErrDuplicate is returned by Store.Insert when the name already exists,
	// typically because a concurrent transaction inserted it first.
	ErrDuplicate = errors.New("reference already exists")
)

// Store reads and writes reference rows on the caller's querier.
type Store interface {
	Find(ctx context.Context, q db.DBTX, kind Kind, name string) (int64, error)
	Insert(ctx context.Context, q db.DBTX, kind Kind, name string, parentID *int64) (int64, error)
	Name(ctx context.Context, q db.DBTX, kind Kind, id int64) (string, error)
}

// PostgresStore is the pgx implementation of Store.
type PostgresStore struct{}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

// Find implements Store.
func (PostgresStore) Find(ctx context.Context, q db.DBTX, kind Kind, name string) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown reference kind %d", int(kind))
	}

	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM `+kind.Table()+` WHERE name = $1`, name).Scan(&id)
	if db.IsNoRows(err) {
		return 0, ErrNotFound
	}
	return id, err
}

// Insert implements Store. A conflicting name yields ErrDuplicate without
// aborting the surrounding transaction.
func (PostgresStore) Insert(ctx context.Context, q db.DBTX, kind Kind, name string, parentID *int64) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown reference kind %d", int(kind))
	}

	var (
		id  int64
		err error
	)
	if kind == KindCommune {
		err = q.QueryRow(ctx, `
			INSERT INTO communes (name, region_id)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
			RETURNING id
		`, name, parentID).Scan(&id)
	} else {
		err = q.QueryRow(ctx, `
			INSERT INTO `+kind.Table()+` (name)
			VALUES ($1)
			ON CONFLICT (name) DO NOTHING
			RETURNING id
		`, name).Scan(&id)
	}

	switch {
	case db.IsNoRows(err), db.IsUniqueViolation(err):
		return 0, ErrDuplicate
	case err != nil:
		return 0, err
	}
	return id, nil
}

// Name implements Store.
func (PostgresStore) Name(ctx context.Context, q db.DBTX, kind Kind, id int64) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown reference kind %d", int(kind))
	}

	var name string
	err := q.QueryRow(ctx, `SELECT name FROM `+kind.Table()+` WHERE id = $1`, id).Scan(&name)
	if db.IsNoRows(err) {
		return "", ErrNotFound
	}
	return name, err
}
