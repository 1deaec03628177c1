package services

import (
	"context"

	"extportal/internal/domain/models"
)

// DocumentUpload is one file handed to the document store.
type DocumentUpload struct {
	FileName    string
	Data        []byte
	ContentType string
	FolderID    *string // nil = tenant root
}

// DocumentStore manages document metadata and blobs for a tenant.
// Mutations write to the remote store first; reads are scoped to the
// caller's tenant at the query layer, not just in the UI.
type DocumentStore interface {
	// Add uploads the blob, registers metadata remotely and then appends
	// the document to the tenant's in-memory collection.
	Add(ctx context.Context, ident *models.Identity, tenantID string, upload *DocumentUpload) (*models.Document, error)

	// Remove deletes the blob best-effort, deletes the metadata, then
	// unconditionally reloads the tenant's document set from remote.
	Remove(ctx context.Context, ident *models.Identity, tenantID, documentID string) error

	// Move changes the document's folder (nil = root) after validating
	// the target folder belongs to the same tenant.
	Move(ctx context.Context, ident *models.Identity, tenantID, documentID string, folderID *string) error

	// List returns the tenant's documents. Client callers only ever
	// receive their own tenant's documents.
	List(ctx context.Context, ident *models.Identity, tenantID string) ([]models.Document, error)

	// Download fetches the blob bytes for one document.
	Download(ctx context.Context, ident *models.Identity, tenantID, documentID string) ([]byte, *models.Document, error)
}
