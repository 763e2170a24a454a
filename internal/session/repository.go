package session

import (
	"context"
	"time"

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

// Replace locks the owning account row so concurrent logins for one account
// serialize, then deletes and inserts under READ COMMITTED. The unique index
// on sessions(user_id) rejects anything that slips past the lock.
func (r *PGRepository) Replace(ctx context.Context, sess Session) (Session, error) {
	err := db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, sess.AccountID).Scan(&locked); err != nil {
			if db.IsNoRows(err) {
				return shared.NotFound("account")
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, sess.AccountID); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			sess.Token, sess.AccountID, sess.CreatedAt, sess.ExpiresAt,
		).Scan(&sess.ID)
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Lookup fetches a session together with its account's active flag.
func (r *PGRepository) Lookup(ctx context.Context, token string) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `
		SELECT s.id, s.token, s.user_id, s.created_at, s.expires_at, u.is_active
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1`, token,
	).Scan(&rec.ID, &rec.Token, &rec.AccountID, &rec.CreatedAt, &rec.ExpiresAt, &rec.AccountActive)
	if err != nil {
		if db.IsNoRows(err) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// Delete removes a session by token.
func (r *PGRepository) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteExpired removes every session that expired before the cutoff.
func (r *PGRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
