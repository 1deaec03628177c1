package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
)

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// ListByTenant returns the tenant's flat folder list
func (r *PostgresFolderRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, tenant_id, name, parent_id, created_at, updated_at
		FROM %s
		WHERE tenant_id = $1
		ORDER BY created_at ASC
	`, r.tables.Folders)

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, remoteErr("list folders", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		err := rows.Scan(
			&folder.ID,
			&folder.TenantID,
			&folder.Name,
			&folder.ParentID,
			&folder.CreatedAt,
			&folder.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, remoteErr("iterate folders", err)
	}

	return folders, nil
}

// Insert stores a new folder
func (r *PostgresFolderRepository) Insert(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, tenant_id, name, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.Folders)

	_, err := r.pool.Exec(ctx, query,
		folder.ID,
		folder.TenantID,
		folder.Name,
		folder.ParentID,
		folder.CreatedAt,
		folder.UpdatedAt,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
				ResourceType: "folder",
				ResourceID:   folder.ID,
			}
		}
		return remoteErr("insert folder", err)
	}

	return nil
}

// Update overwrites name, parent and updated-at of a folder
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, parent_id = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5
	`, r.tables.Folders)

	result, err := r.pool.Exec(ctx, query,
		folder.Name,
		folder.ParentID,
		folder.UpdatedAt,
		folder.ID,
		folder.TenantID,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("folder %q: %w", folder.Name, domain.ErrConflict)
		}
		return remoteErr("update folder", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a single folder row
func (r *PostgresFolderRepository) Delete(ctx context.Context, id, tenantID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND tenant_id = $2`, r.tables.Folders)

	result, err := r.pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("cannot delete folder with children: %w", domain.ErrConflict)
		}
		return remoteErr("delete folder", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// DeleteMany removes a set of folder rows in one call
func (r *PostgresFolderRepository) DeleteMany(ctx context.Context, tenantID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND id = ANY($2)`, r.tables.Folders)

	if _, err := r.pool.Exec(ctx, query, tenantID, ids); err != nil {
		return remoteErr("delete folders", err)
	}

	return nil
}

// ReparentChildren moves every immediate child of fromParent under toParent
func (r *PostgresFolderRepository) ReparentChildren(ctx context.Context, tenantID string, fromParent string, toParent *string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET parent_id = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND parent_id = $3
	`, r.tables.Folders)

	if _, err := r.pool.Exec(ctx, query, toParent, tenantID, fromParent); err != nil {
		return remoteErr("reparent folders", err)
	}

	return nil
}
