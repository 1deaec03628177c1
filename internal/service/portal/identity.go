package portal

import (
	"context"
	"log/slog"
	"strings"

	"extportal/internal/auth"
	"extportal/internal/domain/models"
	"extportal/internal/domain/services"
)

// ResolverDeps wires the identity resolver's collaborators.
type ResolverDeps struct {
	Registry    *Registry
	Provider    auth.IdentityProvider
	AdminEmails []string
	Logger      *slog.Logger
	// Spawn runs the background metadata repair. Defaults to `go`;
	// tests inject a synchronous variant.
	Spawn func(func())
}

// Resolver maps authenticated sessions to {role, tenant}. Resolution
// never fails: a session that cannot be linked to a tenant yields a nil
// TenantID, which grants access to nothing tenant-scoped.
type Resolver struct {
	registry    *Registry
	provider    auth.IdentityProvider
	adminEmails []string
	logger      *slog.Logger
	spawn       func(func())
}

// NewResolver creates an identity resolver.
func NewResolver(deps ResolverDeps) *Resolver {
	spawn := deps.Spawn
	if spawn == nil {
		spawn = func(fn func()) { go fn() }
	}
	return &Resolver{
		registry:    deps.Registry,
		provider:    deps.Provider,
		adminEmails: deps.AdminEmails,
		logger:      deps.Logger,
		spawn:       spawn,
	}
}

// Resolve determines the caller's role and tenant link. The role comes
// from the administrator allow-list; the tenant link from session
// metadata, verified against the registry, with an email match as the
// fallback. A stale metadata link is repaired in the background.
func (r *Resolver) Resolve(ctx context.Context, claims *models.SessionClaims) *models.Identity {
	ident := &models.Identity{
		UserID: claims.GetUserID(),
		Email:  claims.Email,
		Name:   claims.MetadataString("name"),
		CNPJ:   claims.MetadataString("cnpj"),
		Role:   models.RoleClient,
	}

	if r.isAdminEmail(claims.Email) {
		ident.Role = models.RoleAdmin
		return ident
	}

	metaTenant := claims.MetadataString("clientId")
	if metaTenant != "" {
		if _, ok := r.registry.Get(metaTenant); ok {
			ident.TenantID = &metaTenant
			return ident
		}
		// An empty registry cannot contradict the stored link; only a
		// populated one that lacks the tenant does.
		if r.registry.size() == 0 {
			ident.TenantID = &metaTenant
			return ident
		}
	}

	if tenant, ok := r.registry.FindByEmail(claims.Email); ok {
		tenantID := tenant.ID
		ident.TenantID = &tenantID
		if metaTenant != tenantID {
			r.repairLink(claims.Email, tenantID, metaTenant)
		}
		return ident
	}

	if metaTenant != "" {
		r.logger.Warn("session metadata points at an unknown tenant", "email", claims.Email, "tenant_id", metaTenant)
	}
	return ident
}

// IsClientBlocked reports whether a client identity's tenant is
// blocked. Administrators are never blocked; a client without a tenant
// is not blocked either, just scoped to nothing. A registry miss pulls
// the remote list first: a cold process must not wave a blocked tenant
// through.
func (r *Resolver) IsClientBlocked(ctx context.Context, ident *models.Identity) bool {
	if ident == nil || ident.IsAdmin() || ident.TenantID == nil {
		return false
	}
	tenant, ok := r.registry.Get(*ident.TenantID)
	if !ok {
		if err := r.registry.Load(ctx, ident); err != nil {
			r.logger.Warn("tenant lookup for block check failed", "tenant_id", *ident.TenantID, "error", err)
			return false
		}
		tenant, ok = r.registry.Get(*ident.TenantID)
	}
	return ok && tenant.IsBlocked
}

func (r *Resolver) isAdminEmail(email string) bool {
	for _, admin := range r.adminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// repairLink rewrites the stored tenant link in the background so the
// next session resolves directly from metadata.
func (r *Resolver) repairLink(email, tenantID, stale string) {
	r.spawn(func() {
		patch := auth.MetadataPatch{TenantID: &tenantID}
		if err := r.provider.UpdateMetadata(email, patch); err != nil {
			r.logger.Warn("tenant link repair failed", "email", email, "tenant_id", tenantID, "error", err)
			return
		}
		r.logger.Info("repaired stale tenant link", "email", email, "tenant_id", tenantID, "was", stale)
	})
}

var _ services.IdentityResolver = (*Resolver)(nil)
