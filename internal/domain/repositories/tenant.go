package repositories

import (
	"context"

	"extportal/internal/domain/models"
)

// TenantRepository is the remote-store contract for tenant records.
// All calls cross the network and may fail; transient failures are
// wrapped in domain.ErrUnavailable so callers can fall back to cache.
type TenantRepository interface {
	// ListAll returns every tenant ordered by creation time descending.
	// Document collections are not attached; see DocumentRepository.
	ListAll(ctx context.Context) ([]models.Tenant, error)

	// Insert stores a new tenant. Duplicate cnpj or email surfaces as
	// domain.ErrConflict.
	Insert(ctx context.Context, tenant *models.Tenant) error

	// Update overwrites the mutable attributes of an existing tenant.
	Update(ctx context.Context, tenant *models.Tenant) error

	// Delete removes the tenant row. Documents and folders cascade at
	// the store via foreign keys.
	Delete(ctx context.Context, id string) error

	// SetBlocked flips the blocked flag.
	SetBlocked(ctx context.Context, id string, blocked bool) error
}
