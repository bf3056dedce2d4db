package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/roadmap-api/internal/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn is the query surface shared by pooled connections and transactions.
// Repositories operate on a Conn and never manage its lifecycle.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor owns connection checkout and transaction boundaries.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor creates a Transactor over pool.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithConnection acquires a connection for the duration of fn and releases it afterwards.
func (t *Transactor) WithConnection(ctx context.Context, fn func(ctx context.Context, conn Conn) error) error {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return fn(ctx, conn)
}

// WithTransaction runs fn inside a transaction. The transaction is committed
// if fn returns nil and rolled back otherwise; fn's error is returned unchanged.
func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, conn Conn) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.FromContext(ctx).ErrorContext(ctx, "failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Runner runs units of work against a connection or transaction.
type Runner interface {
	WithConnection(ctx context.Context, fn func(ctx context.Context, conn Conn) error) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, conn Conn) error) error
}

// InConnection is WithConnection for work that produces a value.
func InConnection[T any](ctx context.Context, r Runner, fn func(ctx context.Context, conn Conn) (T, error)) (T, error) {
	var result T
	err := r.WithConnection(ctx, func(ctx context.Context, conn Conn) error {
		var err error
		result, err = fn(ctx, conn)
		return err
	})
	return result, err
}

// InTransaction is WithTransaction for work that produces a value.
// On failure the zero value is returned.
func InTransaction[T any](ctx context.Context, r Runner, fn func(ctx context.Context, conn Conn) (T, error)) (T, error) {
	var result T
	err := r.WithTransaction(ctx, func(ctx context.Context, conn Conn) error {
		var err error
		result, err = fn(ctx, conn)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
