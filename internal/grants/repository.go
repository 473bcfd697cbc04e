package grants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowflow/permd/internal/catalog"
)

// uniqueViolation is the PostgreSQL error code raised when the partial
// unique index over active grants rejects a duplicate.
const uniqueViolation = "23505"

// Repository provides PostgreSQL backed grant persistence. The uniqueness
// of active grants is enforced by the uq_active_grant partial unique
// index, so concurrent inserts for the same triple cannot both succeed.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new active grant. Returns ErrConflict when an active
// grant for the same (user, role, scope) already exists.
func (r *Repository) Insert(ctx context.Context, grant Grant) (Grant, error) {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO permission_grants (id, user_id, role_code, resource_type, resource_id, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		grant.ID, grant.UserID, grant.RoleCode, string(grant.Scope.ResourceType), grant.Scope.ResourceID, grant.GrantedBy, grant.GrantedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Grant{}, ErrConflict
		}
		return Grant{}, fmt.Errorf("grants: insert: %w", err)
	}
	return grant, nil
}

// Revoke soft-deletes the active grant matching the triple. Returns
// ErrNotFound when no active grant matches.
func (r *Repository) Revoke(ctx context.Context, userID, roleCode string, scope Scope, revokedBy string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permission_grants
		SET revoked_at = NOW(), revoked_by = $5
		WHERE user_id = $1 AND role_code = $2 AND resource_type = $3 AND resource_id = $4 AND revoked_at IS NULL`,
		userID, roleCode, string(scope.ResourceType), scope.ResourceID, revokedBy,
	)
	if err != nil {
		return fmt.Errorf("grants: revoke: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveGrantsFor returns the user's active grants ordered by granted_at
// ascending.
func (r *Repository) ActiveGrantsFor(ctx context.Context, userID string) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, role_code, resource_type, resource_id, granted_by, granted_at, revoked_at
		FROM permission_grants
		WHERE user_id = $1 AND revoked_at IS NULL
		ORDER BY granted_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("grants: active grants: %w", err)
	}
	defer rows.Close()
	return scanGrants(rows)
}

// RecentlyGrantedUsers returns distinct user IDs touched by a grant since
// the cutoff. Used by the cache warmup job.
func (r *Repository) RecentlyGrantedUsers(ctx context.Context, since time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT user_id FROM permission_grants
		WHERE granted_at >= $1 OR revoked_at >= $1
		LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("grants: recently granted users: %w", err)
	}
	defer rows.Close()
	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func scanGrants(rows pgx.Rows) ([]Grant, error) {
	var out []Grant
	for rows.Next() {
		var (
			g            Grant
			resourceType string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.RoleCode, &resourceType, &g.Scope.ResourceID, &g.GrantedBy, &g.GrantedAt, &g.RevokedAt); err != nil {
			return nil, err
		}
		g.Scope.ResourceType = catalog.ResourceType(resourceType)
		out = append(out, g)
	}
	return out, rows.Err()
}
