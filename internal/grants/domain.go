package grants

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/knowflow/permd/internal/catalog"
)

var (
	// ErrConflict indicates an active grant already exists for the same
	// (user, role, scope) triple.
	ErrConflict = errors.New("grants: active grant already exists")
	// ErrNotFound indicates the grant does not exist or is already revoked.
	ErrNotFound = errors.New("grants: grant not found")
	// ErrInvalidScope indicates a half-specified or unknown-typed scope.
	ErrInvalidScope = errors.New("grants: invalid scope")
)

// Scope bounds a grant's applicability. The zero value is the global
// scope; otherwise the grant is bound to one resource instance.
type Scope struct {
	ResourceType catalog.ResourceType `json:"resource_type,omitempty"`
	ResourceID   string               `json:"resource_id,omitempty"`
}

// Global reports whether the scope is system-wide.
func (s Scope) Global() bool {
	return s.ResourceType == "" && s.ResourceID == ""
}

// Key returns a stable map key for the scope.
func (s Scope) Key() string {
	if s.Global() {
		return "global"
	}
	return fmt.Sprintf("%s:%s", s.ResourceType, s.ResourceID)
}

// Validate rejects half-specified or unknown-typed scopes.
func (s Scope) Validate() error {
	if s.Global() {
		return nil
	}
	if !s.ResourceType.Valid() {
		return fmt.Errorf("%w: unknown resource type %q", ErrInvalidScope, s.ResourceType)
	}
	if s.ResourceID == "" {
		return fmt.Errorf("%w: resource id required for scoped grant", ErrInvalidScope)
	}
	return nil
}

// Grant binds a user to a role within a scope. Revocation sets RevokedAt;
// rows are never physically deleted so the audit history survives.
type Grant struct {
	ID        uuid.UUID
	UserID    string
	RoleCode  string
	Scope     Scope
	GrantedBy string
	GrantedAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the grant has not been revoked.
func (g Grant) Active() bool {
	return g.RevokedAt == nil
}
