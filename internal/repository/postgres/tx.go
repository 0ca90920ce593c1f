package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/summitpay/pkg/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ctxKey int

const txKey ctxKey = iota

// SQLSTATE codes PostgreSQL uses when a transaction lost a race and can be rerun.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// DBTX is the common query interface satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TxManager runs functions inside a database transaction carried by the context.
// Webhooks and the sync jobs lock the same transaction rows, so a top-level
// transaction that deadlocks is rerun from the start.
type TxManager struct {
	pool  *pgxpool.Pool
	opts  pgx.TxOptions
	retry retry.Config
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 20 * time.Millisecond,
			MaxDelay:     200 * time.Millisecond,
			RetryIf:      IsRetryableTxError,
		},
	}
}

// WithTransaction executes fn inside a database transaction, committing when fn
// returns nil. A call made while a transaction is already on ctx joins it.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return fn(ctx)
	}
	return retry.Do(ctx, m.retry, func() error {
		return m.runOnce(ctx, fn)
	})
}

func (m *TxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed (%v) after error: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsRetryableTxError reports whether err is a serialization failure or a
// deadlock anywhere in its chain.
func IsRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

// ConnFromCtx returns the transaction from context if present, otherwise the pool.
func ConnFromCtx(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return tx
	}
	return pool
}

type scanner interface {
	Scan(dest ...any) error
}
