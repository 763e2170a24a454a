package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/helmdesk/helmdesk/internal/shared"
)

const tokenBytes = 32

// Repository persists sessions in the relational store.
type Repository interface {
	// Replace atomically deletes every session of sess.AccountID and inserts sess.
	Replace(ctx context.Context, sess Session) (Session, error)
	// Lookup returns shared.ErrNotFound when the token is unknown.
	Lookup(ctx context.Context, token string) (Record, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Store issues, validates and revokes sessions. It keeps no state of its own.
type Store struct {
	repo     Repository
	lifetime time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// WithTimeout bounds every repository call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for failures that do not change the outcome.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore constructs a Store.
func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		lifetime: DefaultLifetime,
		timeout:  5 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lifetime exposes the configured session lifetime.
func (s *Store) Lifetime() time.Duration {
	return s.lifetime
}

// Issue creates the single live session of accountID, removing earlier ones.
func (s *Store) Issue(ctx context.Context, accountID string) (Session, error) {
	token, err := generateToken()
	if err != nil {
		return Session{}, shared.Internal("generate session token", err)
	}
	now := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.repo.Replace(ctx, Session{
		Token:     token,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
	})
	if err != nil {
		if shared.KindOf(err) == shared.KindNotFound {
			return Session{}, err
		}
		return Session{}, shared.Internal("issue session", err)
	}
	return sess, nil
}

// Validate resolves token to its account id. Every failure, including store
// errors, is an authentication error.
func (s *Store) Validate(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", invalid(ErrNoSession)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.repo.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", invalid(ErrNoSession)
		}
		return "", &shared.Error{Kind: shared.KindAuthentication, Message: "session check failed", Err: err}
	}
	if rec.ExpiresAt.Before(s.now()) {
		// Still expired on the next lookup, which retries the delete.
		if err := s.repo.Delete(ctx, token); err != nil && !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("delete expired session", slog.Any("error", err))
		}
		return "", invalid(ErrExpired)
	}
	if !rec.AccountActive {
		return "", invalid(ErrDisabled)
	}
	return rec.AccountID, nil
}

// Revoke deletes the session. Unknown tokens are not an error.
func (s *Store) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Delete(ctx, token); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return shared.Internal("revoke session", err)
	}
	return nil
}

// PurgeExpired removes sessions past their expiry and returns how many were deleted.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, shared.Internal("purge sessions", err)
	}
	return n, nil
}

func invalid(reason error) error {
	return &shared.Error{Kind: shared.KindAuthentication, Message: reason.Error(), Err: reason}
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
