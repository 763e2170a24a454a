package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id::text, username, password_hash, COALESCE(display_name, ''), COALESCE(email, ''),
	is_active, created_at, updated_at`

// FindByUsername fetches an account by its normalized username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE username = $1`, username))
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.DisplayName, &a.Email, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

var _ Repository = (*PGRepository)(nil)
