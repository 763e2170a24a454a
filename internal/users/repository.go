package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Repository defines persistence for accounts.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, acct NewAccount) (User, error)
	Update(ctx context.Context, id string, patch AccountPatch) (User, error)
	Delete(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUsers = `
	SELECT u.id::text, u.username, COALESCE(u.display_name, ''), COALESCE(u.email, ''), u.is_active,
		COALESCE(array_agg(ur.role::text ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}'),
		u.created_at, u.updated_at
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id`

// List returns every account with its roles, newest first.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, selectUsers+` GROUP BY u.id ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get returns one account.
func (r *PGRepository) Get(ctx context.Context, id string) (User, error) {
	return getUser(ctx, r.pool, id)
}

// Create inserts the account and its roles in one transaction.
func (r *PGRepository) Create(ctx context.Context, acct NewAccount) (User, error) {
	var out User
	err := db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, `
			INSERT INTO users (username, password_hash, display_name, email, is_active)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
			RETURNING id::text`,
			acct.Username, acct.PasswordHash, acct.DisplayName, acct.Email, acct.IsActive,
		).Scan(&id); err != nil {
			return err
		}
		if err := rbac.WriteAccountRoles(ctx, tx, id, acct.Roles); err != nil {
			return err
		}
		var err error
		out, err = getUser(ctx, tx, id)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, shared.Conflict("username already exists", err)
		}
		return User{}, err
	}
	return out, nil
}

// Update applies patch and optionally replaces roles in one transaction.
func (r *PGRepository) Update(ctx context.Context, id string, patch AccountPatch) (User, error) {
	var out User
	err := db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		sets := []string{"updated_at = NOW()"}
		args := []any{id}
		add := func(column string, value any) {
			args = append(args, value)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}
		if patch.DisplayName != nil {
			add("display_name", *patch.DisplayName)
		}
		if patch.Email != nil {
			add("email", *patch.Email)
		}
		if patch.PasswordHash != nil {
			add("password_hash", *patch.PasswordHash)
		}
		if patch.IsActive != nil {
			add("is_active", *patch.IsActive)
		}
		tag, err := tx.Exec(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFound("user")
		}
		if patch.ReplaceRoles {
			if err := rbac.WriteAccountRoles(ctx, tx, id, patch.Roles); err != nil {
				return err
			}
		}
		out, err = getUser(ctx, tx, id)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

// Delete removes the account. Roles and sessions cascade.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("user")
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getUser(ctx context.Context, q querier, id string) (User, error) {
	u, err := scanUser(q.QueryRow(ctx, selectUsers+` WHERE u.id = $1 GROUP BY u.id`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return User{}, shared.NotFound("user")
		}
		return User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u     User
		roles []string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.IsActive, &roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.Roles = make([]rbac.Role, len(roles))
	for i, name := range roles {
		u.Roles[i] = rbac.Role(name)
	}
	return u, nil
}

var _ Repository = (*PGRepository)(nil)
