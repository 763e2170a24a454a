package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const menuColumns = `m.id::text, m.name, COALESCE(m.path, ''), COALESCE(m.icon, ''), m.parent_id::text,
	m.sort_order, m.is_visible, m.created_at, m.updated_at`

// ScanMenu reads a row selected with the menu column list.
func ScanMenu(row pgx.Row) (MenuEntry, error) {
	var m MenuEntry
	err := row.Scan(&m.ID, &m.Name, &m.Path, &m.Icon, &m.ParentID, &m.SortOrder, &m.IsVisible, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// MenuColumns is the select list understood by ScanMenu, aliased on "m".
func MenuColumns() string {
	return menuColumns
}

// RolesOf returns the roles of accountID ordered by role enum.
func (r *PGRepository) RolesOf(ctx context.Context, accountID string) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT role::text FROM user_roles WHERE user_id = $1 ORDER BY role`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := make([]Role, 0, 2)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, Role(name))
	}
	return roles, rows.Err()
}

// HasAnyRole issues a point query against user_roles.
func (r *PGRepository) HasAnyRole(ctx context.Context, accountID string, roles []Role) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles WHERE user_id = $1 AND role::text = ANY($2::text[])
		)`, accountID, roleNames(roles),
	).Scan(&ok)
	return ok, err
}

// GrantedMenus returns one row per grant, grouped by the position of the role
// in roles and then by grant age.
func (r *PGRepository) GrantedMenus(ctx context.Context, roles []Role) ([]MenuEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+menuColumns+`
		FROM role_menus rm
		JOIN menus m ON m.id = rm.menu_id
		WHERE rm.role::text = ANY($1::text[])
		ORDER BY array_position($1::text[], rm.role::text), rm.created_at, rm.id`, roleNames(roles))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MenuEntry
	for rows.Next() {
		m, err := ScanMenu(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReplaceAccountRoles deletes and re-inserts the role set in one transaction.
func (r *PGRepository) ReplaceAccountRoles(ctx context.Context, accountID string, roles []Role) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return WriteAccountRoles(ctx, tx, accountID, roles)
	})
}

// WriteAccountRoles replaces the role set of accountID inside tx. It lets
// account writers persist roles atomically with the account row.
func WriteAccountRoles(ctx context.Context, tx pgx.Tx, accountID string, roles []Role) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, accountID); err != nil {
		return err
	}
	for _, role := range roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2::app_role) ON CONFLICT (user_id, role) DO NOTHING`,
			accountID, string(role),
		); err != nil {
			if db.IsForeignKeyViolation(err) {
				return shared.NotFound("account")
			}
			return err
		}
	}
	return nil
}

// ReplaceRoleMenus deletes and re-inserts the grants of role in one
// transaction. A transaction-scoped advisory lock per role serializes
// concurrent writers so the last commit wins whole.
func (r *PGRepository) ReplaceRoleMenus(ctx context.Context, role Role, menuIDs []string) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, shared.RoleGrantsLockKey(string(role))); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_menus WHERE role = $1::app_role`, string(role)); err != nil {
			return err
		}
		for _, id := range menuIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_menus (role, menu_id) VALUES ($1::app_role, $2)`, string(role), id,
			); err != nil {
				if db.IsForeignKeyViolation(err) {
					return shared.Validation("unknown menu id %q", id)
				}
				return err
			}
		}
		return nil
	})
}

func roleNames(roles []Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}
