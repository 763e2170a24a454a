package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/helmdesk/helmdesk/internal/observability"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/session"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Sessions issues and revokes bearer sessions.
type Sessions interface {
	Issue(ctx context.Context, accountID string) (session.Session, error)
	Revoke(ctx context.Context, token string) error
}

// Roles loads role and menu assignments.
type Roles interface {
	RolesOf(ctx context.Context, accountID string) ([]rbac.Role, error)
	MenusFor(ctx context.Context, roles []rbac.Role) ([]rbac.MenuEntry, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions Sessions
	roles    Roles
	hasher   Hasher
	lockout  Lockout
	audit    shared.Auditor
	logger   *slog.Logger
	metrics  *observability.Metrics
	timeout  time.Duration
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo     Repository
	Sessions Sessions
	Roles    Roles
	Hasher   Hasher
	Lockout  Lockout
	Audit    shared.Auditor
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Timeout  time.Duration
}

// NewService constructs a new Service.
func NewService(d Deps) *Service {
	s := &Service{
		repo:     d.Repo,
		sessions: d.Sessions,
		roles:    d.Roles,
		hasher:   d.Hasher,
		lockout:  d.Lockout,
		audit:    d.Audit,
		logger:   d.Logger,
		metrics:  d.Metrics,
		timeout:  d.Timeout,
	}
	if s.lockout == nil {
		s.lockout = NopLockout{}
	}
	if s.audit == nil {
		s.audit = shared.NopAuditor{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	return s
}

var errTooManyAttempts = errors.New("too many attempts")

// Login verifies credentials and issues a session, replacing any previous
// session of the account.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	username := NormalizeUsername(in.Username)
	if username == "" || in.Digest == "" {
		return LoginResult{}, shared.Validation("username and password are required")
	}
	digest, fallback, err := NormalizeDigest(in.Digest)
	if err != nil {
		return LoginResult{}, err
	}
	if fallback {
		s.logger.Warn("transport digest fallback marker used", slog.String("username", username))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	locked, err := s.lockout.Locked(ctx, username)
	if err != nil {
		s.logger.Error("lockout lookup failed", slog.String("username", username), slog.Any("error", err))
	}
	if locked {
		s.metrics.ObserveLogin(observability.LoginLocked)
		s.logger.Warn("login lockout active", slog.String("username", username))
		return LoginResult{}, &shared.Error{Kind: shared.KindAuthentication, Message: errTooManyAttempts.Error(), Err: errTooManyAttempts}
	}

	acct, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return LoginResult{}, s.reject(ctx, username, "unknown_user")
		}
		s.metrics.ObserveLogin(observability.LoginFailed)
		return LoginResult{}, shared.Internal("find account", err)
	}
	if !s.hasher.Verify(digest, acct.PasswordHash) {
		return LoginResult{}, s.reject(ctx, username, "bad_password")
	}
	if !acct.IsActive {
		return LoginResult{}, s.reject(ctx, username, "inactive")
	}
	if err := s.lockout.Clear(ctx, username); err != nil {
		s.logger.Warn("lockout clear failed", slog.String("username", username), slog.Any("error", err))
	}

	sess, err := s.sessions.Issue(ctx, acct.ID)
	if err != nil {
		s.metrics.ObserveLogin(observability.LoginFailed)
		return LoginResult{}, err
	}
	roles, err := s.roles.RolesOf(ctx, acct.ID)
	if err != nil {
		s.metrics.ObserveLogin(observability.LoginFailed)
		return LoginResult{}, err
	}
	menus, err := s.roles.MenusFor(ctx, roles)
	if err != nil {
		s.metrics.ObserveLogin(observability.LoginFailed)
		return LoginResult{}, err
	}

	s.metrics.ObserveLogin(observability.LoginSucceeded)
	s.record(ctx, shared.AuditLog{
		ActorID:  acct.ID,
		Action:   shared.AuditLoginSucceeded,
		Entity:   "account",
		EntityID: acct.ID,
		Meta:     map[string]any{"fallback_digest": fallback},
	})
	return LoginResult{
		Account:      acct,
		Roles:        roles,
		Menus:        menus,
		SessionToken: sess.Token,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

// Logout revokes the session behind token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.sessions.Revoke(ctx, token)
}

// Profile returns the account with its current roles and menus.
func (s *Service) Profile(ctx context.Context, accountID string) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	acct, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Profile{}, shared.NotFound("account")
		}
		return Profile{}, shared.Internal("find account", err)
	}
	roles, err := s.roles.RolesOf(ctx, acct.ID)
	if err != nil {
		return Profile{}, err
	}
	menus, err := s.roles.MenusFor(ctx, roles)
	if err != nil {
		return Profile{}, err
	}
	return newProfile(acct, roles, menus), nil
}

func (s *Service) reject(ctx context.Context, username, reason string) error {
	s.metrics.ObserveLogin(observability.LoginRejected)
	if _, err := s.lockout.RecordFailure(ctx, username); err != nil {
		s.logger.Error("lockout update failed", slog.String("username", username), slog.Any("error", err))
	}
	s.record(ctx, shared.AuditLog{
		Action:   shared.AuditLoginFailed,
		Entity:   "account",
		EntityID: username,
		Meta:     map[string]any{"reason": reason},
	})
	return &shared.Error{
		Kind:    shared.KindAuthentication,
		Message: shared.ErrInvalidCredentials.Error(),
		Err:     shared.ErrInvalidCredentials,
	}
}

func (s *Service) record(ctx context.Context, entry shared.AuditLog) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

func newProfile(acct Account, roles []rbac.Role, menus []rbac.MenuEntry) Profile {
	if roles == nil {
		roles = []rbac.Role{}
	}
	if menus == nil {
		menus = []rbac.MenuEntry{}
	}
	return Profile{
		ID:          acct.ID,
		Username:    acct.Username,
		DisplayName: acct.DisplayName,
		Email:       acct.Email,
		Roles:       roles,
		Menus:       menus,
	}
}
