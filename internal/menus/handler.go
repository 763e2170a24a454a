package menus

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/rbac"
)

// Handler serves menu administration.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gateway *rbac.Gateway
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, gateway *rbac.Gateway) *Handler {
	return &Handler{logger: logger, service: service, gateway: gateway}
}

// MountRoutes registers admin-only menu routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gateway.RequireSession, h.gateway.Require(rbac.OpManageMenus))
		r.Get("/menus", h.list)
		r.Post("/menus", h.create)
		r.Put("/menus/{id}", h.update)
		r.Delete("/menus/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	m, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusCreated, m)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	m, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusOK, m)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w)
}
