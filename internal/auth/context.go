package auth

import (
	"context"
	"net/http"

	"github.com/clinicwise/clinic-backend/internal/models"
)

type principalKey struct{}

// Principal is the authenticated caller resolved for a request
type Principal struct {
	User        *models.User
	RoleName    string // empty when the user has no role
	Permissions models.PermissionSet
}

// UserID returns the caller's id
func (p *Principal) UserID() string {
	return p.User.ID
}

// HasPermission reports whether the caller holds the permission
func (p *Principal) HasPermission(name string) bool {
	return p.Permissions.Has(name)
}

// HasRole reports whether the caller's role is name. Holders of the wildcard
// capability satisfy every role requirement.
func (p *Principal) HasRole(name string) bool {
	if p.Permissions.IsWildcard() {
		return true
	}
	return p.RoleName != "" && p.RoleName == name
}

// WithPrincipal stores the principal in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the authentication middleware
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// GetPrincipal is a request shorthand for PrincipalFromContext
func GetPrincipal(r *http.Request) *Principal {
	p, _ := PrincipalFromContext(r.Context())
	return p
}
