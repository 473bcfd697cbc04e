package engine

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/knowflow/permd/internal/catalog"
	"github.com/knowflow/permd/internal/grants"
	"github.com/knowflow/permd/internal/platform/httpx"
	"github.com/knowflow/permd/internal/shared"
)

// Handler exposes the permission API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	guard     Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		guard:     guard,
	}
}

// MountRoutes registers the permission routes. Reads are open to any
// authenticated caller; grant mutation requires grant-administration
// rights.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Get("/users/{user_id}/roles", h.listRoles)
	r.Get("/users/{user_id}/permissions", h.listPermissions)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireManager())
		r.Post("/users/{user_id}/roles", h.grantRole)
		r.Delete("/users/{user_id}/roles/{role_code}", h.revokeRole)
	})
}

type checkForm struct {
	UserID         string `json:"user_id" validate:"required"`
	PermissionCode string `json:"permission_code" validate:"required"`
	ResourceType   string `json:"resource_type" validate:"required"`
	ResourceID     string `json:"resource_id"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var form checkForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	decision, err := h.service.Check(r.Context(), CheckRequest{
		UserID:         form.UserID,
		PermissionCode: form.PermissionCode,
		ResourceType:   catalog.ResourceType(form.ResourceType),
		ResourceID:     form.ResourceID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if decision.GrantedRoles == nil {
		decision.GrantedRoles = []string{}
	}
	httpx.JSON(w, http.StatusOK, decision)
}

type grantResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	RoleCode     string `json:"role_code"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	GrantedBy    string `json:"granted_by"`
	GrantedAt    string `json:"granted_at"`
}

func toGrantResponse(g grants.Grant) grantResponse {
	return grantResponse{
		ID:           g.ID.String(),
		UserID:       g.UserID,
		RoleCode:     g.RoleCode,
		ResourceType: string(g.Scope.ResourceType),
		ResourceID:   g.Scope.ResourceID,
		GrantedBy:    g.GrantedBy,
		GrantedAt:    g.GrantedAt.Format(time.RFC3339),
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	active, err := h.service.ActiveRoles(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(active))
	for _, g := range active {
		out = append(out, toGrantResponse(g))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "grants": out})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	set, err := h.service.EffectivePermissions(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

type grantForm struct {
	RoleCode     string `json:"role_code" validate:"required"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	GrantedBy    string `json:"granted_by"`
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	var form grantForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	grantedBy := form.GrantedBy
	if grantedBy == "" {
		grantedBy = shared.ActorFromContext(r.Context())
	}
	scope := grants.Scope{
		ResourceType: catalog.ResourceType(form.ResourceType),
		ResourceID:   form.ResourceID,
	}
	grant, err := h.service.GrantRole(r.Context(), userID, form.RoleCode, scope, grantedBy)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toGrantResponse(grant))
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	roleCode := chi.URLParam(r, "role_code")
	scope := grants.Scope{
		ResourceType: catalog.ResourceType(r.URL.Query().Get("resource_type")),
		ResourceID:   r.URL.Query().Get("resource_id"),
	}
	revokedBy := shared.ActorFromContext(r.Context())
	if err := h.service.RevokeRole(r.Context(), userID, roleCode, scope, revokedBy); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
