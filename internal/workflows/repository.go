package workflows

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Repository defines persistence for workflows.
type Repository interface {
	List(ctx context.Context) ([]Workflow, error)
	// ListPublic must filter in the query so private rows never leave the store.
	ListPublic(ctx context.Context) ([]Workflow, error)
	Get(ctx context.Context, id string) (Workflow, error)
	Create(ctx context.Context, in Input, uploadedBy string) (Workflow, error)
	Update(ctx context.Context, id string, in Input) (Workflow, error)
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

const workflowColumns = `id::text, title, COALESCE(description, ''), COALESCE(video_path, ''), COALESCE(video_size, 0),
	COALESCE(markdown_content, ''), is_public, uploaded_by::text, created_at, updated_at`

// List returns every workflow newest first.
func (r *PGRepository) List(ctx context.Context) ([]Workflow, error) {
	return r.query(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at DESC`)
}

// ListPublic returns only workflows flagged public.
func (r *PGRepository) ListPublic(ctx context.Context) ([]Workflow, error) {
	return r.query(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE is_public ORDER BY created_at DESC`)
}

// Get fetches one workflow.
func (r *PGRepository) Get(ctx context.Context, id string) (Workflow, error) {
	return notFound(scanWorkflow(r.pool.QueryRow(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)))
}

// Create inserts a workflow.
func (r *PGRepository) Create(ctx context.Context, in Input, uploadedBy string) (Workflow, error) {
	return scanWorkflow(r.pool.QueryRow(ctx, `
		INSERT INTO workflows (title, description, video_path, video_size, markdown_content, is_public, uploaded_by)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4::bigint, 0), NULLIF($5, ''), $6, $7)
		RETURNING `+workflowColumns,
		in.Title, in.Description, in.VideoPath, in.VideoSize, in.MarkdownContent, in.IsPublic, uploadedBy))
}

// Update overwrites a workflow.
func (r *PGRepository) Update(ctx context.Context, id string, in Input) (Workflow, error) {
	return notFound(scanWorkflow(r.pool.QueryRow(ctx, `
		UPDATE workflows
		SET title = $2, description = NULLIF($3, ''), video_path = NULLIF($4, ''), video_size = NULLIF($5::bigint, 0),
			markdown_content = NULLIF($6, ''), is_public = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+workflowColumns,
		id, in.Title, in.Description, in.VideoPath, in.VideoSize, in.MarkdownContent, in.IsPublic)))
}

// Delete removes a workflow row.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("workflow")
	}
	return nil
}

func (r *PGRepository) query(ctx context.Context, sql string) ([]Workflow, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Workflow, 0)
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWorkflow(row pgx.Row) (Workflow, error) {
	var w Workflow
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.VideoPath, &w.VideoSize, &w.MarkdownContent,
		&w.IsPublic, &w.UploadedBy, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func notFound(w Workflow, err error) (Workflow, error) {
	if db.IsNoRows(err) {
		return Workflow{}, shared.NotFound("workflow")
	}
	return w, err
}

var _ Repository = (*PGRepository)(nil)
