package db

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx. Repositories
// accept it so one method can run standalone or inside a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TxFunc is the body of a transaction. The context carries the commit scope.
type TxFunc func(ctx context.Context, tx DBTX) error

// Transactor opens a transaction, runs fn and commits it, rolling back on any
// error returned by fn.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// PoolTransactor is the pgx-backed Transactor.
type PoolTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor creates a Transactor over the pool.
func NewTransactor(pool *pgxpool.Pool) *PoolTransactor {
	return &PoolTransactor{pool: pool}
}

// WithinTx implements Transactor.
func (t *PoolTransactor) WithinTx(ctx context.Context, fn TxFunc) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	scopedCtx, scope := NewCommitScope(ctx)
	if err := fn(scopedCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	scope.Run(ctx)
	return nil
}

type commitScopeKey struct{}

// CommitScope collects callbacks that must only run once the enclosing
// transaction has committed.
type CommitScope struct {
	mu    sync.Mutex
	hooks []func(context.Context)
}

// NewCommitScope attaches a fresh scope to ctx. Transactor implementations
// call it when opening a transaction and Run after a successful commit.
func NewCommitScope(ctx context.Context) (context.Context, *CommitScope) {
	scope := &CommitScope{}
	return context.WithValue(ctx, commitScopeKey{}, scope), scope
}

// Run executes the registered hooks in registration order.
func (s *CommitScope) Run(ctx context.Context) {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx)
	}
}

// AfterCommit registers fn on the commit scope carried by ctx. It reports
// false, and drops fn, when ctx carries no scope.
func AfterCommit(ctx context.Context, fn func(context.Context)) bool {
	scope, ok := ctx.Value(commitScopeKey{}).(*CommitScope)
	if !ok || scope == nil {
		return false
	}
	scope.mu.Lock()
	scope.hooks = append(scope.hooks, fn)
	scope.mu.Unlock()
	return true
}
