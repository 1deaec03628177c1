package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
)

const documentColumns = "id, tenant_id, name, doc_type, size, upload_date, file_url, storage_path, folder_id"

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// ListAll returns every document row
func (r *PostgresDocumentRepository) ListAll(ctx context.Context) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s ORDER BY upload_date DESC
	`, documentColumns, r.tables.Documents)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, remoteErr("list documents", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListByTenant returns the full document set of one tenant
func (r *PostgresDocumentRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE tenant_id = $1 ORDER BY upload_date DESC
	`, documentColumns, r.tables.Documents)

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, remoteErr("list tenant documents", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Insert stores new document metadata
func (r *PostgresDocumentRepository) Insert(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Documents, documentColumns)

	_, err := r.pool.Exec(ctx, query,
		doc.ID,
		doc.TenantID,
		doc.Name,
		doc.Type,
		doc.Size,
		doc.UploadDate,
		doc.FileURL,
		doc.StoragePath,
		doc.FolderID,
	)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("document %q references a missing tenant or folder: %w", doc.Name, domain.ErrValidation)
		}
		return remoteErr("insert document", err)
	}

	return nil
}

// Delete removes one document row
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, tenantID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND tenant_id = $2`, r.tables.Documents)

	result, err := r.pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return remoteErr("delete document", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetFolder moves a document to another folder (nil = tenant root)
func (r *PostgresDocumentRepository) SetFolder(ctx context.Context, id, tenantID string, folderID *string) error {
	query := fmt.Sprintf(`UPDATE %s SET folder_id = $1 WHERE id = $2 AND tenant_id = $3`, r.tables.Documents)

	result, err := r.pool.Exec(ctx, query, folderID, id, tenantID)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("target folder does not exist: %w", domain.ErrValidation)
		}
		return remoteErr("move document", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ReparentFolder moves every document directly inside fromFolder to toFolder
func (r *PostgresDocumentRepository) ReparentFolder(ctx context.Context, tenantID string, fromFolder string, toFolder *string) error {
	query := fmt.Sprintf(`UPDATE %s SET folder_id = $1 WHERE tenant_id = $2 AND folder_id = $3`, r.tables.Documents)

	if _, err := r.pool.Exec(ctx, query, toFolder, tenantID, fromFolder); err != nil {
		return remoteErr("reparent documents", err)
	}

	return nil
}

// DeleteByFolders removes all documents whose folder is in folderIDs
func (r *PostgresDocumentRepository) DeleteByFolders(ctx context.Context, tenantID string, folderIDs []string) error {
	if len(folderIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND folder_id = ANY($2)`, r.tables.Documents)

	if _, err := r.pool.Exec(ctx, query, tenantID, folderIDs); err != nil {
		return remoteErr("delete documents by folder", err)
	}

	return nil
}

func scanDocuments(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.TenantID,
			&doc.Name,
			&doc.Type,
			&doc.Size,
			&doc.UploadDate,
			&doc.FileURL,
			&doc.StoragePath,
			&doc.FolderID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, remoteErr("iterate documents", err)
	}

	return docs, nil
}
