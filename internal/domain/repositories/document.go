package repositories

import (
	"context"

	"extportal/internal/domain/models"
)

// DocumentRepository is the remote-store contract for document metadata.
type DocumentRepository interface {
	// ListAll returns every document row, used by the registry to attach
	// document collections to tenants on a full load.
	ListAll(ctx context.Context) ([]models.Document, error)

	// ListByTenant returns the full document set of one tenant, ordered
	// by upload date descending.
	ListByTenant(ctx context.Context, tenantID string) ([]models.Document, error)

	// Insert stores new document metadata.
	Insert(ctx context.Context, doc *models.Document) error

	// Delete removes one document row.
	Delete(ctx context.Context, id, tenantID string) error

	// SetFolder moves a document to another folder (nil = tenant root).
	SetFolder(ctx context.Context, id, tenantID string, folderID *string) error

	// ReparentFolder moves every document directly inside fromFolder to
	// toFolder. Used by the promote-delete policy.
	ReparentFolder(ctx context.Context, tenantID string, fromFolder string, toFolder *string) error

	// DeleteByFolders removes all documents whose folder is in folderIDs.
	// Used by the cascade-delete policy.
	DeleteByFolders(ctx context.Context, tenantID string, folderIDs []string) error
}
