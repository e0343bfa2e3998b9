package rbac

import (
	"context"
	"slices"

	"github.com/mayondo/mwf/internal/shared"
)

// Principal describes the authenticated actor of a request.
type Principal struct {
	UserID      int64
	Username    string
	Roles       []string
	Permissions []string
}

// IsManager reports whether the actor holds the Manager role.
func (p Principal) IsManager() bool {
	return slices.Contains(p.Roles, shared.RoleManager)
}

// Can reports whether the actor holds perm.
func (p Principal) Can(perm string) bool {
	return slices.Contains(p.Permissions, perm)
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal resolved earlier in the request.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
