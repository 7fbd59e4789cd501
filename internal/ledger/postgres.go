package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by PostgresLedger.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	listAccountsQuery = `SELECT id FROM accounts WHERE owner = $1 ORDER BY id`
	balanceQuery      = `SELECT balance FROM accounts WHERE id = $1 AND owner = $2`
	lockAccountQuery  = `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`
	debitQuery        = `UPDATE accounts SET balance = balance - $1 WHERE id = $2`
	creditQuery       = `UPDATE accounts SET balance = balance + $1 WHERE id = $2`
)

// PostgresLedger keeps balances in the accounts table.
type PostgresLedger struct {
	db DB
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// ListAccounts returns the ids of accounts owned by owner.
func (l *PostgresLedger) ListAccounts(ctx context.Context, owner string) ([]int64, error) {
	rows, err := l.db.Query(ctx, listAccountsQuery, owner)
	if err != nil {
		return nil, storageError("list accounts", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, storageError("list accounts", err)
	}
	return ids, nil
}

// Balance returns the balance of id when owned by owner.
func (l *PostgresLedger) Balance(ctx context.Context, id int64, owner string) (int64, error) {
	var balance int64
	if err := l.db.QueryRow(ctx, balanceQuery, id, owner).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, storageError("balance", err)
	}
	return balance, nil
}

// Transfer moves amount from source to target inside one transaction. Both
// rows are locked in ascending id order so concurrent transfers touching the
// same pair cannot deadlock, and the funds check runs under the lock.
func (l *PostgresLedger) Transfer(ctx context.Context, source, target, amount int64) error {
	if amount <= 0 || source == target {
		return ErrInvalidTransfer
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return storageError("begin transfer", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := source, target
	if second < first {
		first, second = second, first
	}
	balances := make(map[int64]int64, 2)
	for _, id := range []int64{first, second} {
		var balance int64
		if err := tx.QueryRow(ctx, lockAccountQuery, id).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				if id == target {
					return ErrTargetNotFound
				}
				return ErrAccountNotFound
			}
			return storageError("lock account", err)
		}
		balances[id] = balance
	}

	if balances[source] < amount {
		return ErrInsufficientFunds
	}

	if err := execOne(ctx, tx, debitQuery, amount, source); err != nil {
		return storageError("debit", err)
	}
	if err := execOne(ctx, tx, creditQuery, amount, target); err != nil {
		return storageError("credit", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageError("commit transfer", err)
	}
	return nil
}

var errRowNotUpdated = errors.New("expected exactly one row to be updated")

func execOne(ctx context.Context, tx pgx.Tx, query string, args ...any) error {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkOneRow(tag)
}

func checkOneRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() != 1 {
		return errRowNotUpdated
	}
	return nil
}
