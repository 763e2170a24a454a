package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/helmdesk/helmdesk/internal/observability"
	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// SessionValidator resolves a bearer token to an account id.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// RoleChecker answers point role queries.
type RoleChecker interface {
	HasAnyRole(ctx context.Context, accountID string, roles []Role) (bool, error)
}

// Gateway authenticates requests and authorizes operations against Policy.
type Gateway struct {
	sessions SessionValidator
	roles    RoleChecker
	policy   Policy
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewGateway constructs a Gateway enforcing DefaultPolicy.
func NewGateway(sessions SessionValidator, roles RoleChecker, logger *slog.Logger, metrics *observability.Metrics) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		sessions: sessions,
		roles:    roles,
		policy:   DefaultPolicy(),
		logger:   logger,
		metrics:  metrics,
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// Authenticate runs the token and session gates on a raw Authorization header.
func (g *Gateway) Authenticate(ctx context.Context, header string) (shared.Principal, error) {
	token, ok := BearerToken(header)
	if !ok {
		return shared.Principal{}, &shared.Error{
			Kind:    shared.KindAuthentication,
			Message: shared.ErrUnauthorized.Error(),
			Err:     shared.ErrUnauthorized,
		}
	}
	accountID, err := g.sessions.Validate(ctx, token)
	if err != nil {
		if shared.KindOf(err) != shared.KindAuthentication {
			g.logger.Error("session validation failed", slog.Any("error", err))
			return shared.Principal{}, shared.Authentication("session check failed")
		}
		return shared.Principal{}, err
	}
	return shared.Principal{AccountID: accountID, Token: token}, nil
}

// Authorize checks that accountID may perform op. Every call re-reads the
// role store. Store failures deny with an authentication error.
func (g *Gateway) Authorize(ctx context.Context, accountID string, op Operation) error {
	required, ok := g.policy.Lookup(op)
	if !ok {
		g.logger.Error("operation missing from policy", slog.String("operation", string(op)))
		return shared.Authorization()
	}
	if len(required) == 0 {
		return nil
	}
	allowed, err := g.roles.HasAnyRole(ctx, accountID, required)
	if err != nil {
		g.logger.Error("role check failed",
			slog.String("operation", string(op)),
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return shared.Authentication("role check failed")
	}
	if !allowed {
		return shared.Authorization()
	}
	return nil
}

// RequireSession is middleware that rejects requests without a valid session
// and stores the principal in the request context.
func (g *Gateway) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			g.reject(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// Require is middleware authorizing op for the principal placed by
// RequireSession. Without a principal the request is rejected with 401.
func (g *Gateway) Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				g.reject(w, shared.Authentication(shared.ErrUnauthorized.Error()))
				return
			}
			if err := g.Authorize(r.Context(), principal.AccountID, op); err != nil {
				g.reject(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gateway) reject(w http.ResponseWriter, err error) {
	status := httpx.StatusFor(err)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		g.metrics.ObserveAuthRejection(status)
	}
	httpx.RespondError(w, g.logger, err)
}
