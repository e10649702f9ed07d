package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/storage"
)

type txKey struct{}

// Querier is the query surface shared by pools and transactions.
// Repositories resolve it from the context so the same repository
// instance works inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func querier(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

const txMaxAttempts = 3

// TxRunner implements storage.TxRunner on Postgres. Transactions run
// under REPEATABLE READ so two concurrent read-modify-write sequences
// on the same rows cannot both commit; serialization failures and
// version conflicts are retried up to txMaxAttempts before surfacing
// as storage.ErrRetryExhausted.
type TxRunner struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewTxRunner(pool *pgxpool.Pool, logger zerolog.Logger) *TxRunner {
	return &TxRunner{pool: pool, logger: logger.With().Str("component", "tx").Logger()}
}

func (t *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		// Already inside a transaction: join it.
		return fn(ctx)
	}
	var lastErr error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		lastErr = t.runOnce(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		t.logger.Debug().Err(lastErr).Int("attempt", attempt).Msg("transaction conflict, retrying")
	}
	return fmt.Errorf("%w: %v", storage.ErrRetryExhausted, lastErr)
}

func (t *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isRetryable(err error) bool {
	if errors.Is(err, storage.ErrVersionConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
