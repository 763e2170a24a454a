package packages

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Repository defines persistence for packages.
type Repository interface {
	List(ctx context.Context) ([]Package, error)
	Get(ctx context.Context, id string) (Package, error)
	Create(ctx context.Context, in Input, uploadedBy string) (Package, error)
	Update(ctx context.Context, id string, in Input) (Package, error)
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

const packageColumns = `id::text, name, COALESCE(description, ''), file_path, file_size, COALESCE(version, ''),
	uploaded_by::text, created_at, updated_at`

// List returns packages newest first.
func (r *PGRepository) List(ctx context.Context) ([]Package, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches one package.
func (r *PGRepository) Get(ctx context.Context, id string) (Package, error) {
	return notFound(scanPackage(r.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)))
}

// Create inserts a package.
func (r *PGRepository) Create(ctx context.Context, in Input, uploadedBy string) (Package, error) {
	return scanPackage(r.pool.QueryRow(ctx, `
		INSERT INTO packages (name, description, file_path, file_size, version, uploaded_by)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6)
		RETURNING `+packageColumns,
		in.Name, in.Description, in.FilePath, in.FileSize, in.Version, uploadedBy))
}

// Update overwrites a package.
func (r *PGRepository) Update(ctx context.Context, id string, in Input) (Package, error) {
	return notFound(scanPackage(r.pool.QueryRow(ctx, `
		UPDATE packages
		SET name = $2, description = NULLIF($3, ''), file_path = $4, file_size = $5,
			version = NULLIF($6, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING `+packageColumns,
		id, in.Name, in.Description, in.FilePath, in.FileSize, in.Version)))
}

// Delete removes a package row.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("package")
	}
	return nil
}

func scanPackage(row pgx.Row) (Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.FilePath, &p.FileSize, &p.Version, &p.UploadedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func notFound(p Package, err error) (Package, error) {
	if db.IsNoRows(err) {
		return Package{}, shared.NotFound("package")
	}
	return p, err
}

var _ Repository = (*PGRepository)(nil)
