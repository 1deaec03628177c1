package repositories

import (
	"context"

	"extportal/internal/domain/models"
)

// SnapshotCache is the persisted local mirror of the tenant list: one
// key holding the serialized slice. It is an offline/fallback read
// source only, never primary truth - the remote store always wins.
type SnapshotCache interface {
	// LoadTenants returns the cached tenant list, or domain.ErrNotFound
	// when no snapshot has been written yet.
	LoadTenants(ctx context.Context) ([]models.Tenant, error)

	// StoreTenants replaces the cached snapshot.
	StoreTenants(ctx context.Context, tenants []models.Tenant) error
}
