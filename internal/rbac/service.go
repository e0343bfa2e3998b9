package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayondo/mwf/internal/shared"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Store loads the identity and role names of a user.
type Store interface {
	UserRoles(ctx context.Context, userID int64) (username string, roles []string, err error)
}

// Service resolves roles into capabilities.
type Service struct {
	store Store
}

// NewService constructs a Service backed by the provided store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Resolve loads the principal of userID. Inactive or unknown users yield ErrNotFound.
func (s *Service) Resolve(ctx context.Context, userID int64) (Principal, error) {
	username, roles, err := s.store.UserRoles(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:      userID,
		Username:    username,
		Roles:       roles,
		Permissions: PermissionsForRoles(roles),
	}, nil
}

// PermissionsForRoles unions the capabilities of every role.
func PermissionsForRoles(roles []string) []string {
	set := make(map[string]struct{})
	for _, role := range roles {
		for _, perm := range shared.ScopesForRole(role) {
			set[perm] = struct{}{}
		}
	}
	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms
}

// PGStore reads roles from PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// UserRoles implements Store.
func (s *PGStore) UserRoles(ctx context.Context, userID int64) (string, []string, error) {
	var username string
	var roles []string
	err := s.pool.QueryRow(ctx, `SELECT u.username, COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.id = $1 AND u.is_active
		GROUP BY u.username`, userID).Scan(&username, &roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrNotFound
		}
		return "", nil, fmt.Errorf("rbac: user roles: %w", err)
	}
	return username, roles, nil
}

var _ Store = (*PGStore)(nil)
