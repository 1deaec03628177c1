package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
)

// PostgresProfileRepository implements the ProfileRepository interface
type PostgresProfileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(config *RepositoryConfig) repositories.ProfileRepository {
	return &PostgresProfileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetByEmail returns the profile row for an email
func (r *PostgresProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := fmt.Sprintf(`
		SELECT email, tenant_id, role, name, cnpj
		FROM %s
		WHERE lower(email) = lower($1)
	`, r.tables.Profiles)

	var profile models.Profile
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&profile.Email,
		&profile.TenantID,
		&profile.Role,
		&profile.Name,
		&profile.CNPJ,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("profile %s: %w", email, domain.ErrNotFound)
		}
		return nil, remoteErr("get profile", err)
	}

	return &profile, nil
}

// Upsert inserts or replaces the profile row, conflicting on email
func (r *PostgresProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (email, tenant_id, role, name, cnpj)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET tenant_id = EXCLUDED.tenant_id,
		    role = EXCLUDED.role,
		    name = EXCLUDED.name,
		    cnpj = EXCLUDED.cnpj
	`, r.tables.Profiles)

	_, err := r.pool.Exec(ctx, query,
		profile.Email,
		profile.TenantID,
		profile.Role,
		profile.Name,
		profile.CNPJ,
	)

	if err != nil {
		return remoteErr("upsert profile", err)
	}

	return nil
}

// SeverTenantLink clears the tenant link on every profile pointing at
// the given tenant
func (r *PostgresProfileRepository) SeverTenantLink(ctx context.Context, tenantID string) error {
	query := fmt.Sprintf(`UPDATE %s SET tenant_id = NULL WHERE tenant_id = $1`, r.tables.Profiles)

	if _, err := r.pool.Exec(ctx, query, tenantID); err != nil {
		return remoteErr("sever profile link", err)
	}

	return nil
}
