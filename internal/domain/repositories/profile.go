package repositories

import (
	"context"

	"extportal/internal/domain/models"
)

// ProfileRepository maintains the profile-links table: a denormalized
// {tenant, role, name, cnpj} projection of identity-provider accounts,
// keyed by email.
type ProfileRepository interface {
	// GetByEmail returns the profile row for an email, or
	// domain.ErrNotFound when the account is not yet visible.
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)

	// Upsert inserts or replaces the profile row, conflicting on email.
	Upsert(ctx context.Context, profile *models.Profile) error

	// SeverTenantLink clears the tenant link on every profile that
	// points at the given tenant. Used on tenant deletion.
	SeverTenantLink(ctx context.Context, tenantID string) error
}
