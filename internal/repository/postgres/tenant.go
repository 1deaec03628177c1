package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
)

// PostgresTenantRepository implements the TenantRepository interface
type PostgresTenantRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(config *RepositoryConfig) repositories.TenantRepository {
	return &PostgresTenantRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// ListAll returns every tenant ordered by creation time descending
func (r *PostgresTenantRepository) ListAll(ctx context.Context) ([]models.Tenant, error) {
	query := fmt.Sprintf(`
		SELECT id, cnpj, name, password, email, maintenance_date, is_blocked, user_role, user_email, created_at
		FROM %s
		ORDER BY created_at DESC
	`, r.tables.Tenants)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, remoteErr("list tenants", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var tenant models.Tenant
		err := rows.Scan(
			&tenant.ID,
			&tenant.CNPJ,
			&tenant.Name,
			&tenant.Password,
			&tenant.Email,
			&tenant.MaintenanceDate,
			&tenant.IsBlocked,
			&tenant.UserRole,
			&tenant.UserEmail,
			&tenant.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, remoteErr("iterate tenants", err)
	}

	return tenants, nil
}

// Insert stores a new tenant
func (r *PostgresTenantRepository) Insert(ctx context.Context, tenant *models.Tenant) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, cnpj, name, password, email, maintenance_date, is_blocked, user_role, user_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Tenants)

	_, err := r.pool.Exec(ctx, query,
		tenant.ID,
		tenant.CNPJ,
		tenant.Name,
		tenant.Password,
		tenant.Email,
		tenant.MaintenanceDate,
		tenant.IsBlocked,
		tenant.UserRole,
		tenant.UserEmail,
		tenant.CreatedAt,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a tenant with cnpj %q or this email already exists", tenant.CNPJ),
				ResourceType: "tenant",
				ResourceID:   tenant.ID,
			}
		}
		return remoteErr("insert tenant", err)
	}

	return nil
}

// Update overwrites the mutable attributes of a tenant
func (r *PostgresTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET cnpj = $1, name = $2, password = $3, email = $4, maintenance_date = $5,
		    is_blocked = $6, user_role = $7, user_email = $8
		WHERE id = $9
	`, r.tables.Tenants)

	result, err := r.pool.Exec(ctx, query,
		tenant.CNPJ,
		tenant.Name,
		tenant.Password,
		tenant.Email,
		tenant.MaintenanceDate,
		tenant.IsBlocked,
		tenant.UserRole,
		tenant.UserEmail,
		tenant.ID,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("tenant %q: %w", tenant.Name, domain.ErrConflict)
		}
		return remoteErr("update tenant", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tenant %s: %w", tenant.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes the tenant row. Documents, folders and profile links
// cascade through foreign keys at the store.
func (r *PostgresTenantRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Tenants)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return remoteErr("delete tenant", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetBlocked flips the blocked flag
func (r *PostgresTenantRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	query := fmt.Sprintf(`UPDATE %s SET is_blocked = $1 WHERE id = $2`, r.tables.Tenants)

	result, err := r.pool.Exec(ctx, query, blocked, id)
	if err != nil {
		return remoteErr("set tenant blocked", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
