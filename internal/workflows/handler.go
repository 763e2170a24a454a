package workflows

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Handler serves workflow endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gateway *rbac.Gateway
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, gateway *rbac.Gateway) *Handler {
	return &Handler{logger: logger, service: service, gateway: gateway}
}

// MountRoutes registers workflow routes for any account plus the
// unauthenticated public listing.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/public/workflows", h.listPublic)
	r.Group(func(r chi.Router) {
		r.Use(h.gateway.RequireSession, h.gateway.Require(rbac.OpManageWorkflows))
		r.Get("/workflows", h.list)
		r.Post("/workflows", h.create)
		r.Put("/workflows/{id}", h.update)
		r.Delete("/workflows/{id}", h.delete)
	})
}

func (h *Handler) listPublic(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListPublic(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusOK, out)
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
	principal, _ := shared.PrincipalFromContext(r.Context())
	wf, err := h.service.Create(r.Context(), in, principal.AccountID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusCreated, wf)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	wf, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Data(w, http.StatusOK, wf)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w)
}
