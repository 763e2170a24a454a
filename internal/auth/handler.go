package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gateway *rbac.Gateway
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gateway *rbac.Gateway) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, gateway: gateway}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.With(h.gateway.RequireSession, h.gateway.Require(rbac.OpViewSelf)).Get("/me", h.handleMe)
}

type loginRequest struct {
	Username       string `json:"username" validate:"required"`
	PasswordDigest string `json:"passwordDigest"`
	// Password is the legacy field name for the digest.
	Password string `json:"password"`
}

func (r loginRequest) digest() string {
	if r.PasswordDigest != "" {
		return r.PasswordDigest
	}
	return r.Password
}

type loginUser struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	DisplayName string           `json:"displayName"`
	Roles       []rbac.Role      `json:"roles"`
	Menus       []rbac.MenuEntry `json:"menus"`
}

type loginResponse struct {
	Success      bool      `json:"success"`
	User         loginUser `json:"user"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type loginFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.digest() == "" {
		h.fail(w, shared.Validation("password is required"))
		return
	}

	result, err := h.service.Login(r.Context(), LoginInput{Username: req.Username, Digest: req.digest()})
	if err != nil {
		h.fail(w, err)
		return
	}
	profile := newProfile(result.Account, result.Roles, result.Menus)
	httpx.JSON(w, http.StatusOK, loginResponse{
		Success: true,
		User: loginUser{
			ID:          profile.ID,
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
			Roles:       profile.Roles,
			Menus:       profile.Menus,
		},
		SessionToken: result.SessionToken,
		ExpiresAt:    result.ExpiresAt,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := rbac.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	profile, err := h.service.Profile(r.Context(), principal.AccountID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusOK, profile)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := httpx.StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("login failed", slog.Any("error", err))
	}
	httpx.JSON(w, status, loginFailure{Success: false, Error: shared.UserSafeMessage(err)})
}
