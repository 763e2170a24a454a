package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/helmdesk/helmdesk/internal/auth"
	"github.com/helmdesk/helmdesk/internal/menus"
	"github.com/helmdesk/helmdesk/internal/observability"
	"github.com/helmdesk/helmdesk/internal/packages"
	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/roles"
	"github.com/helmdesk/helmdesk/internal/upload"
	"github.com/helmdesk/helmdesk/internal/users"
	"github.com/helmdesk/helmdesk/internal/workflows"
	"github.com/helmdesk/helmdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	RolesHandler     *roles.Handler
	MenusHandler     *menus.Handler
	PackagesHandler  *packages.Handler
	WorkflowsHandler *workflows.Handler
	UploadHandler    *upload.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with helmdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}
	if params.UsersHandler != nil {
		params.UsersHandler.MountRoutes(r)
	}
	if params.RolesHandler != nil {
		params.RolesHandler.MountRoutes(r)
	}
	if params.MenusHandler != nil {
		params.MenusHandler.MountRoutes(r)
	}
	if params.PackagesHandler != nil {
		params.PackagesHandler.MountRoutes(r)
	}
	if params.WorkflowsHandler != nil {
		params.WorkflowsHandler.MountRoutes(r)
	}
	if params.UploadHandler != nil {
		params.UploadHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
