package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/knowflow/permd/internal/audit"
	"github.com/knowflow/permd/internal/catalog"
	"github.com/knowflow/permd/internal/grants"
	"github.com/knowflow/permd/internal/roles"
)

// AuditRecorder persists grant lifecycle events. Audit failures are
// logged and swallowed: correctness of future checks outranks audit
// completeness.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// ServiceConfig tunes engine behaviour.
type ServiceConfig struct {
	// DefaultRole, when non-empty, is applied as an implicit global
	// grant for users holding no active grants.
	DefaultRole string
	// DecisionObserver, when set, is invoked with the outcome of every
	// completed check. Used to feed metrics.
	DecisionObserver func(allowed bool)
}

// Service is the authorization engine and grant lifecycle manager. It
// holds no mutable state of its own; the cache is the only shared
// mutable resource and is safe for concurrent use.
type Service struct {
	perms  *catalog.Catalog
	roles  *roles.Catalog
	store  GrantStore
	cache  *Cache
	audit  AuditRecorder
	logger *slog.Logger
	cfg    ServiceConfig
}

// NewService wires the engine.
func NewService(perms *catalog.Catalog, roleCatalog *roles.Catalog, store GrantStore, cache *Cache, recorder AuditRecorder, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		perms:  perms,
		roles:  roleCatalog,
		store:  store,
		cache:  cache,
		audit:  recorder,
		logger: logger,
		cfg:    cfg,
	}
}

// Check decides whether the user holds the requested permission on the
// requested resource. Global-scope grants are consulted first and
// short-circuit the per-resource lookup. Denial is a Decision, not an
// error; errors signal catalog or storage failures only.
func (s *Service) Check(ctx context.Context, req CheckRequest) (Decision, error) {
	perm, err := s.perms.Lookup(req.PermissionCode)
	if err != nil {
		return Decision{}, err
	}
	if perm.ResourceType != req.ResourceType {
		return s.observe(Decision{
			Allowed: false,
			Reason:  "permission/resource type mismatch",
		}), nil
	}

	set, err := s.EffectivePermissions(ctx, req.UserID)
	if err != nil {
		return Decision{}, err
	}

	if granted := set.rolesFor("global", req.PermissionCode); len(granted) > 0 {
		return s.observe(allow(granted)), nil
	}
	if req.ResourceID != "" {
		scope := grants.Scope{ResourceType: req.ResourceType, ResourceID: req.ResourceID}
		if granted := set.rolesFor(scope.Key(), req.PermissionCode); len(granted) > 0 {
			return s.observe(allow(granted)), nil
		}
	}
	return s.observe(Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("missing permission %q", req.PermissionCode),
	}), nil
}

func (s *Service) observe(d Decision) Decision {
	if s.cfg.DecisionObserver != nil {
		s.cfg.DecisionObserver(d.Allowed)
	}
	return d
}

// CanManageGrants reports whether the user may administer grants. The
// system management permission always suffices; when adminRole is
// non-empty, an active global grant of that role does too.
func (s *Service) CanManageGrants(ctx context.Context, userID, adminRole string) (bool, error) {
	decision, err := s.Check(ctx, CheckRequest{
		UserID:         userID,
		PermissionCode: "system_manage",
		ResourceType:   catalog.ResourceSystem,
	})
	if err != nil {
		return false, err
	}
	if decision.Allowed {
		return true, nil
	}
	if adminRole == "" {
		return false, nil
	}
	active, err := s.store.ActiveGrantsFor(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, g := range active {
		if g.RoleCode == adminRole && g.Scope.Global() {
			return true, nil
		}
	}
	return false, nil
}

// EffectivePermissions returns the user's resolved permission view,
// served from the cache when fresh.
func (s *Service) EffectivePermissions(ctx context.Context, userID string) (EffectiveSet, error) {
	return s.cache.Fetch(ctx, userID, func(ctx context.Context) (EffectiveSet, error) {
		return s.materialize(ctx, userID)
	})
}

// ActiveRoles returns the user's active grants.
func (s *Service) ActiveRoles(ctx context.Context, userID string) ([]grants.Grant, error) {
	return s.store.ActiveGrantsFor(ctx, userID)
}

// GrantRole binds a role to a user within the given scope. The role is
// validated against the catalog before the store is touched; the cache
// entry for the user is invalidated unconditionally afterwards, even if
// audit logging fails.
func (s *Service) GrantRole(ctx context.Context, userID, roleCode string, scope grants.Scope, grantedBy string) (grants.Grant, error) {
	if _, err := s.roles.Lookup(roleCode); err != nil {
		return grants.Grant{}, err
	}
	if err := scope.Validate(); err != nil {
		return grants.Grant{}, err
	}
	grant, err := s.store.Insert(ctx, grants.Grant{
		UserID:    userID,
		RoleCode:  roleCode,
		Scope:     scope,
		GrantedBy: grantedBy,
	})
	if err != nil {
		return grants.Grant{}, err
	}
	s.invalidate(ctx, userID)
	s.record(ctx, audit.Entry{
		ActorID:  grantedBy,
		Action:   audit.ActionGrant,
		UserID:   userID,
		RoleCode: roleCode,
		Scope:    scope.Key(),
		Meta:     map[string]any{"grant_id": grant.ID.String()},
	})
	return grant, nil
}

// RevokeRole revokes the active grant matching the triple. The grant
// row is kept with revoked_at set so the audit history survives.
func (s *Service) RevokeRole(ctx context.Context, userID, roleCode string, scope grants.Scope, revokedBy string) error {
	if _, err := s.roles.Lookup(roleCode); err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := s.store.Revoke(ctx, userID, roleCode, scope, revokedBy); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.record(ctx, audit.Entry{
		ActorID:  revokedBy,
		Action:   audit.ActionRevoke,
		UserID:   userID,
		RoleCode: roleCode,
		Scope:    scope.Key(),
	})
	return nil
}

// WarmUp precomputes and caches the user's effective set. Used by the
// background warmup job.
func (s *Service) WarmUp(ctx context.Context, userID string) error {
	_, err := s.EffectivePermissions(ctx, userID)
	return err
}

// materialize builds the effective set from active grants and the role
// hierarchy closure. A global-scope grant's permissions apply to every
// resource of the matching type, so they live under the "global" key
// and are checked first.
func (s *Service) materialize(ctx context.Context, userID string) (EffectiveSet, error) {
	active, err := s.store.ActiveGrantsFor(ctx, userID)
	if err != nil {
		return EffectiveSet{}, err
	}
	if len(active) == 0 && s.cfg.DefaultRole != "" {
		active = []grants.Grant{{UserID: userID, RoleCode: s.cfg.DefaultRole}}
	}
	set := EffectiveSet{
		UserID:     userID,
		Scopes:     make(map[string]ScopePermissions),
		ComputedAt: time.Now().UTC(),
	}
	for _, grant := range active {
		codes, err := s.roles.Resolve(grant.RoleCode)
		if err != nil {
			// A stored grant referencing a role missing from the
			// catalog is a configuration-integrity failure.
			return EffectiveSet{}, err
		}
		key := grant.Scope.Key()
		sp, ok := set.Scopes[key]
		if !ok {
			sp = ScopePermissions{Scope: grant.Scope, Permissions: make(map[string][]string)}
		}
		for _, code := range codes {
			sp.Permissions[code] = appendRole(sp.Permissions[code], grant.RoleCode)
		}
		set.Scopes[key] = sp
	}
	return set, nil
}

// invalidate drops the user's cached set. Failures are logged, not
// returned: the store mutation has already committed and the stale
// entry still expires at the TTL. Read-your-writes is lost for that
// window when Redis is down.
func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Error("invalidate permission cache", slog.String("user_id", userID), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("record permission audit", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

func allow(granted []string) Decision {
	out := make([]string, len(granted))
	copy(out, granted)
	sort.Strings(out)
	return Decision{Allowed: true, GrantedRoles: out, Reason: "granted"}
}

func appendRole(existing []string, role string) []string {
	for _, r := range existing {
		if r == role {
			return existing
		}
	}
	return append(existing, role)
}
