// Package roles exposes role-to-menu grant administration.
package roles

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/rbac"
)

// Grants reads and replaces role menu grants.
type Grants interface {
	ListRoleMenus(ctx context.Context) ([]rbac.RoleMenus, error)
	RoleMenus(ctx context.Context, role rbac.Role) ([]rbac.MenuEntry, error)
	ReplaceRoleMenus(ctx context.Context, role rbac.Role, menuIDs []string) error
}

// Handler serves the role endpoints.
type Handler struct {
	logger  *slog.Logger
	grants  Grants
	gateway *rbac.Gateway
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, grants Grants, gateway *rbac.Gateway) *Handler {
	return &Handler{logger: logger, grants: grants, gateway: gateway}
}

// MountRoutes registers admin-only role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gateway.RequireSession, h.gateway.Require(rbac.OpManageRoles))
		r.Get("/roles", h.list)
		r.Get("/roles/{role}/menus", h.menus)
		r.Put("/roles/{role}/menus", h.replaceMenus)
	})
}

type replaceMenusRequest struct {
	MenuIDs []string `json:"menuIds" validate:"dive,uuid"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.grants.ListRoleMenus(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusOK, out)
}

func (h *Handler) menus(w http.ResponseWriter, r *http.Request) {
	role, err := rbac.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out, err := h.grants.RoleMenus(r.Context(), role)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusOK, out)
}

func (h *Handler) replaceMenus(w http.ResponseWriter, r *http.Request) {
	role, err := rbac.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req replaceMenusRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.grants.ReplaceRoleMenus(r.Context(), role, req.MenuIDs); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out, err := h.grants.RoleMenus(r.Context(), role)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusOK, rbac.RoleMenus{Role: role, Menus: out})
}
