package services

import (
	"context"

	"extportal/internal/domain/models"
)

// IdentityResolver maps an authenticated session to {role, tenant}.
// Resolution never fails: an unresolvable tenant yields a nil TenantID
// and the caller must treat that as access to nothing tenant-scoped.
type IdentityResolver interface {
	// Resolve determines the role from the administrator allow-list and
	// the tenant link from session metadata, falling back to an email
	// match against the registry. When the stored link diverges from the
	// resolved one, the resolver repairs it in the background.
	Resolve(ctx context.Context, claims *models.SessionClaims) *models.Identity

	// IsClientBlocked reports whether a client identity's resolved
	// tenant is blocked. Admins are never blocked. When the registry
	// does not know the tenant yet, the remote list is consulted before
	// the session is let through.
	IsClientBlocked(ctx context.Context, ident *models.Identity) bool
}
