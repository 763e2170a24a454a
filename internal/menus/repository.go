package menus

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Repository defines persistence for menu entries.
type Repository interface {
	List(ctx context.Context) ([]rbac.MenuEntry, error)
	Create(ctx context.Context, in Input) (rbac.MenuEntry, error)
	Update(ctx context.Context, id string, in Input) (rbac.MenuEntry, error)
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

// List returns menus ordered by sort order.
func (r *PGRepository) List(ctx context.Context) ([]rbac.MenuEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rbac.MenuColumns()+` FROM menus m ORDER BY m.sort_order, m.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]rbac.MenuEntry, 0)
	for rows.Next() {
		m, err := rbac.ScanMenu(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserts a menu.
func (r *PGRepository) Create(ctx context.Context, in Input) (rbac.MenuEntry, error) {
	m, err := rbac.ScanMenu(r.pool.QueryRow(ctx, `
		INSERT INTO menus AS m (name, path, icon, parent_id, sort_order, is_visible)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)
		RETURNING `+rbac.MenuColumns(),
		in.Name, in.Path, in.Icon, in.ParentID, in.SortOrder, in.visible()))
	if err != nil {
		return rbac.MenuEntry{}, mapWriteError(err)
	}
	return m, nil
}

// Update overwrites a menu.
func (r *PGRepository) Update(ctx context.Context, id string, in Input) (rbac.MenuEntry, error) {
	m, err := rbac.ScanMenu(r.pool.QueryRow(ctx, `
		UPDATE menus AS m
		SET name = $2, path = NULLIF($3, ''), icon = NULLIF($4, ''), parent_id = $5,
			sort_order = $6, is_visible = $7, updated_at = NOW()
		WHERE m.id = $1
		RETURNING `+rbac.MenuColumns(),
		id, in.Name, in.Path, in.Icon, in.ParentID, in.SortOrder, in.visible()))
	if err != nil {
		if db.IsNoRows(err) {
			return rbac.MenuEntry{}, shared.NotFound("menu")
		}
		return rbac.MenuEntry{}, mapWriteError(err)
	}
	return m, nil
}

// Delete removes a menu. Grants cascade and children are detached.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menus WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("menu")
	}
	return nil
}

func mapWriteError(err error) error {
	if db.IsForeignKeyViolation(err) {
		return shared.Validation("parent menu does not exist")
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
