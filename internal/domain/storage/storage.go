package storage

import (
	"context"
	"errors"
)

var (
	// ErrVersionConflict is returned by a versioned Update whose expected
	// prior version no longer matches the stored row.
	ErrVersionConflict = errors.New("write conflict: version mismatch")

	// ErrRetryExhausted is returned when a transaction kept hitting write
	// conflicts and ran out of retry attempts.
	ErrRetryExhausted = errors.New("transaction retries exhausted")
)

// TxRunner executes fn inside a single atomic transaction. All writes
// issued through repositories within fn commit together or not at all;
// any error from fn aborts them. Nested calls join the enclosing
// transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
