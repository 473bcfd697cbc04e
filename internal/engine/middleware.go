package engine

import (
	"log/slog"
	"net/http"

	"github.com/knowflow/permd/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers, backed by the
// engine's own check.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
	// AdminRole names the configured administrator role. Callers
	// holding an active global grant of it may administer grants even
	// when their resolved set lacks the system management permission.
	AdminRole string
}

// RequireManager admits callers allowed to administer grants: holders of
// the system management permission, or of an active global grant of the
// configured admin role. Missing identity maps to 401, denial to 403,
// engine errors to 500.
func (m Middleware) RequireManager() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			allowed, err := m.Service.CanManageGrants(r.Context(), actor, m.AdminRole)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorization guard", slog.String("actor", actor), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
