package users

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/auth"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Service implements account administration.
type Service struct {
	repo    Repository
	hasher  auth.Hasher
	audit   shared.Auditor
	logger  *slog.Logger
	adminID uuid.UUID
	timeout time.Duration
}

// NewService constructs a Service. adminID names the protected seed account;
// an empty or unparsable value falls back to DefaultAdminID.
func NewService(repo Repository, hasher auth.Hasher, audit shared.Auditor, logger *slog.Logger, adminID string, timeout time.Duration) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	admin, err := uuid.Parse(adminID)
	if err != nil {
		admin = uuid.MustParse(DefaultAdminID)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{repo: repo, hasher: hasher, audit: audit, logger: logger, adminID: admin, timeout: timeout}
}

// List returns every account with roles.
func (s *Service) List(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, classify("list users", err)
	}
	return out, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return User{}, shared.NotFound("user")
	}
	id = parsed.String()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, classify("get user", err)
	}
	return u, nil
}

// Create stores a new account with its roles.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	username := auth.NormalizeUsername(in.Username)
	if username == "" {
		return User{}, shared.Validation("username is required")
	}
	raw := in.PasswordDigest
	if raw == "" {
		raw = in.Password
	}
	if raw == "" {
		return User{}, shared.Validation("password is required")
	}
	hash, err := s.hashCredential(username, raw)
	if err != nil {
		return User{}, err
	}
	roles, err := rbac.ParseRoles(in.Roles)
	if err != nil {
		return User{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	u, err := s.repo.Create(ctx, NewAccount{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		IsActive:     active,
		Roles:        roles,
	})
	if err != nil {
		return User{}, classify("create user", err)
	}
	return u, nil
}

// Update applies a partial update. Roles, when present, replace the full set.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return User{}, shared.NotFound("user")
	}
	id = parsed.String()
	patch := AccountPatch{
		DisplayName: in.DisplayName,
		Email:       in.Email,
		IsActive:    in.IsActive,
	}
	raw := in.PasswordDigest
	if raw == nil || *raw == "" {
		raw = in.Password
	}
	if raw != nil && *raw != "" {
		hash, err := s.hashCredential(id, *raw)
		if err != nil {
			return User{}, err
		}
		patch.PasswordHash = &hash
	}
	if in.Roles != nil {
		roles, err := rbac.ParseRoles(*in.Roles)
		if err != nil {
			return User{}, err
		}
		patch.Roles = roles
		patch.ReplaceRoles = true
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	u, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return User{}, classify("update user", err)
	}
	return u, nil
}

// Delete removes an account. The seed administrator is always refused.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return shared.NotFound("user")
	}
	// uuid.Parse accepts braced, urn and hyphenless forms, so compare values.
	if parsed == s.adminID {
		return shared.Validation("cannot delete the default administrator")
	}
	id = parsed.String()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Delete(ctx, id); err != nil {
		return classify("delete user", err)
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   shared.AuditAccountDeleted,
		Entity:   "account",
		EntityID: id,
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", shared.AuditAccountDeleted), slog.Any("error", err))
	}
	return nil
}

func (s *Service) hashCredential(subject, raw string) (string, error) {
	digest, fallback, err := auth.NormalizeDigest(raw)
	if err != nil {
		return "", err
	}
	if fallback {
		s.logger.Warn("transport digest fallback marker used", slog.String("subject", subject))
	}
	return s.hasher.Hash(digest)
}

func classify(op string, err error) error {
	if shared.KindOf(err) != shared.KindInternal {
		return err
	}
	return shared.Internal(op, err)
}
