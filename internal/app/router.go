package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/knowflow/permd/internal/audit"
	"github.com/knowflow/permd/internal/engine"
	"github.com/knowflow/permd/internal/observability"
	"github.com/knowflow/permd/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	PermissionHandler *engine.Handler
	AuditHandler      *audit.Handler
	JobHandler        *jobs.Handler
	Guard             engine.Middleware
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with permd defaults.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/permission", func(r chi.Router) {
		r.Use(RequireIdentity)
		params.PermissionHandler.MountRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(params.Guard.RequireManager())
			r.Route("/audit", params.AuditHandler.MountRoutes)
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
