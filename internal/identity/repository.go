package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

// ErrNotFound is returned when no identity exists for the given email.
var ErrNotFound = errors.New("identity not found")

// Repository looks up identities.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Identity, error)
}

// Querier is the subset of *pgxpool.Pool used by PostgresRepository.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByEmail fetches an identity by its unique email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT email, name, password_hash FROM users WHERE email = $1`, email)
	var id Identity
	if err := row.Scan(&id.Email, &id.Name, &id.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, oops.Code("IDENTITY_LOOKUP_FAILED").
			With("operation", "find identity by email").
			Wrap(err)
	}
	return id, nil
}
