package engine

import (
	"context"
	"time"

	"github.com/knowflow/permd/internal/catalog"
	"github.com/knowflow/permd/internal/grants"
)

// Decision is the transient result of a single authorization check.
// Denial is a normal result, never an error.
type Decision struct {
	Allowed      bool     `json:"allowed"`
	GrantedRoles []string `json:"granted_roles"`
	Reason       string   `json:"reason"`
}

// ScopePermissions maps permission codes to the role codes that grant
// them within one scope.
type ScopePermissions struct {
	Scope       grants.Scope        `json:"scope"`
	Permissions map[string][]string `json:"permissions"`
}

// EffectiveSet is the fully resolved permission view for one user,
// keyed by scope. Derived from the grant store and role catalog; lives
// for the cache TTL or until explicit invalidation.
type EffectiveSet struct {
	UserID     string                      `json:"user_id"`
	Scopes     map[string]ScopePermissions `json:"scopes"`
	ComputedAt time.Time                   `json:"computed_at"`
}

// rolesFor returns the role codes granting code within the named scope.
func (s EffectiveSet) rolesFor(scopeKey, code string) []string {
	sp, ok := s.Scopes[scopeKey]
	if !ok {
		return nil
	}
	return sp.Permissions[code]
}

// GrantStore is the persistence contract the engine depends on. The
// store owns grant records and enforces active-grant uniqueness
// atomically at the storage layer.
type GrantStore interface {
	Insert(ctx context.Context, grant grants.Grant) (grants.Grant, error)
	Revoke(ctx context.Context, userID, roleCode string, scope grants.Scope, revokedBy string) error
	ActiveGrantsFor(ctx context.Context, userID string) ([]grants.Grant, error)
}

// CheckRequest carries the parameters of one authorization check.
type CheckRequest struct {
	UserID         string
	PermissionCode string
	ResourceType   catalog.ResourceType
	ResourceID     string
}
