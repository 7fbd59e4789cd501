// Package ledger stores account balances and executes transfers atomically.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

var (
	// ErrAccountNotFound is returned when an account does not exist or is not
	// owned by the caller.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTargetNotFound is returned when the credited account does not exist.
	ErrTargetNotFound = errors.New("target account not found")

	// ErrInsufficientFunds occurs when the source balance cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidTransfer guards the executor against a non-positive amount or
	// identical source and target.
	ErrInvalidTransfer = errors.New("invalid transfer")

	// ErrStorage wraps every driver, transaction and commit failure. The
	// underlying cause stays reachable through errors.As.
	ErrStorage = errors.New("storage error")
)

// Account is a balance held in integer minor units by one owner.
type Account struct {
	ID      int64
	Owner   string
	Balance int64
}

// Ledger defines the contract implemented by ledger backends.
type Ledger interface {
	// ListAccounts returns the ids of accounts owned by owner in ascending order.
	ListAccounts(ctx context.Context, owner string) ([]int64, error)
	// Balance returns the balance of id when it is owned by owner.
	Balance(ctx context.Context, id int64, owner string) (int64, error)
	// Transfer debits source and credits target by amount in one unit of
	// work. Either both rows change or neither does.
	Transfer(ctx context.Context, source, target, amount int64) error
}

// IsRetryable reports whether err is a transient transaction failure
// (serialization failure or deadlock) that a caller may safely retry.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgerrcode.IsTransactionRollback(pgErr.Code)
}

func storageError(operation string, err error) error {
	return oops.Code("LEDGER_STORAGE").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStorage, err))
}
