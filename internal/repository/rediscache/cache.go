// Package rediscache persists the registry's tenant snapshot in Redis.
// It is the offline/fallback mirror of remote truth: one key holding
// the serialized tenant list, read only when the remote store is
// unreachable and overwritten on every successful load or mutation.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
)

// snapshotKey is the single key holding the serialized tenant list.
const snapshotKey = "extportal:tenants"

// SnapshotCache implements repositories.SnapshotCache on Redis.
type SnapshotCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewSnapshotCache creates a new Redis snapshot cache.
func NewSnapshotCache(client *redis.Client, logger *slog.Logger) repositories.SnapshotCache {
	return &SnapshotCache{
		client: client,
		logger: logger,
	}
}

// LoadTenants returns the cached tenant list.
func (c *SnapshotCache) LoadTenants(ctx context.Context) ([]models.Tenant, error) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("tenant snapshot: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read tenant snapshot: %w", err)
	}

	var tenants []models.Tenant
	if err := json.Unmarshal(data, &tenants); err != nil {
		// A snapshot that no longer parses is useless; treat it as absent
		// so the caller moves on to seeding rather than failing the load.
		c.logger.Warn("discarding unparseable tenant snapshot", "error", err)
		return nil, fmt.Errorf("tenant snapshot: %w", domain.ErrNotFound)
	}

	return tenants, nil
}

// StoreTenants replaces the cached snapshot.
func (c *SnapshotCache) StoreTenants(ctx context.Context, tenants []models.Tenant) error {
	data, err := json.Marshal(tenants)
	if err != nil {
		return fmt.Errorf("serialize tenant snapshot: %w", err)
	}

	if err := c.client.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("write tenant snapshot: %w", err)
	}

	return nil
}
