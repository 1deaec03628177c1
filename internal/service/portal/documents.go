package portal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
	"extportal/internal/domain/services"
)

// DocumentDeps wires the document store's collaborators.
type DocumentDeps struct {
	Registry *Registry
	Metadata repositories.DocumentRepository
	Folders  repositories.FolderRepository
	Blobs    repositories.BlobStore
	Logger   *slog.Logger
}

// Documents manages document metadata and payloads. Payloads live in
// the blob store under tenants/<tenantID>/<documentID>/<filename>;
// metadata lives in the remote table and is mirrored into the
// registry's per-tenant collections.
type Documents struct {
	registry *Registry
	repo     repositories.DocumentRepository
	folders  repositories.FolderRepository
	blobs    repositories.BlobStore
	logger   *slog.Logger
}

// NewDocuments creates a document store.
func NewDocuments(deps DocumentDeps) *Documents {
	return &Documents{
		registry: deps.Registry,
		repo:     deps.Metadata,
		folders:  deps.Folders,
		blobs:    deps.Blobs,
		logger:   deps.Logger,
	}
}

// Add uploads the payload, registers the metadata remotely, then
// appends the document to the tenant's in-memory collection.
func (d *Documents) Add(ctx context.Context, ident *models.Identity, tenantID string, upload *services.DocumentUpload) (*models.Document, error) {
	if !d.registry.HasAccess(ident, tenantID) {
		return nil, &domain.ForbiddenError{Message: "no access to this tenant"}
	}
	if err := validateDocumentUpload(upload); err != nil {
		return nil, err
	}
	if upload.FolderID != nil {
		if err := d.validateFolder(ctx, tenantID, *upload.FolderID); err != nil {
			return nil, err
		}
	}

	docID := uuid.NewString()
	storagePath := fmt.Sprintf("tenants/%s/%s/%s", tenantID, docID, upload.FileName)

	fileURL, err := d.blobs.Put(ctx, storagePath, upload.Data, upload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload document payload: %w", err)
	}

	doc := models.Document{
		ID:          docID,
		TenantID:    tenantID,
		Name:        upload.FileName,
		Type:        documentType(upload.FileName),
		Size:        humanize.Bytes(uint64(len(upload.Data))),
		UploadDate:  time.Now().UTC(),
		FileURL:     fileURL,
		StoragePath: storagePath,
		FolderID:    upload.FolderID,
	}

	if err := d.repo.Insert(ctx, &doc); err != nil {
		// The payload is already in the blob store; clean it up so a
		// failed registration leaves nothing behind.
		if derr := d.blobs.Delete(ctx, storagePath); derr != nil {
			d.logger.Warn("orphaned payload cleanup failed", "path", storagePath, "error", derr)
		}
		return nil, fmt.Errorf("register document: %w", err)
	}

	d.registry.appendDocument(tenantID, doc)

	out := doc.Clone()
	return &out, nil
}

// Remove deletes the payload best-effort, deletes the metadata, then
// reloads the tenant's document set from remote so local state reflects
// whatever the store actually holds.
func (d *Documents) Remove(ctx context.Context, ident *models.Identity, tenantID, documentID string) error {
	if !d.registry.HasAccess(ident, tenantID) {
		return &domain.ForbiddenError{Message: "no access to this tenant"}
	}

	doc, ok := d.registry.documentOf(tenantID, documentID)
	if !ok {
		// The mirror may not hold this tenant's documents yet; the
		// stored path has to come from the remote row or the payload
		// would be orphaned.
		if docs, err := d.repo.ListByTenant(ctx, tenantID); err != nil {
			d.logger.Warn("document lookup before payload delete failed", "tenant_id", tenantID, "error", err)
		} else {
			d.registry.replaceDocuments(tenantID, docs)
			for i := range docs {
				if docs[i].ID == documentID {
					found := docs[i].Clone()
					doc = &found
					ok = true
					break
				}
			}
		}
	}
	if ok && doc.StoragePath != "" {
		if err := d.blobs.Delete(ctx, doc.StoragePath); err != nil {
			d.logger.Warn("payload deletion failed, metadata removal continues", "path", doc.StoragePath, "error", err)
		}
	}

	if err := d.repo.Delete(ctx, documentID, tenantID); err != nil {
		return err
	}

	docs, err := d.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		d.logger.Warn("document reload after delete failed, applying local removal", "tenant_id", tenantID, "error", err)
		d.registry.removeDocument(tenantID, documentID)
		return nil
	}
	d.registry.replaceDocuments(tenantID, docs)
	return nil
}

// Move changes the document's folder (nil = tenant root).
func (d *Documents) Move(ctx context.Context, ident *models.Identity, tenantID, documentID string, folderID *string) error {
	if !d.registry.HasAccess(ident, tenantID) {
		return &domain.ForbiddenError{Message: "no access to this tenant"}
	}
	if folderID != nil {
		if err := d.validateFolder(ctx, tenantID, *folderID); err != nil {
			return err
		}
	}

	if err := d.repo.SetFolder(ctx, documentID, tenantID, folderID); err != nil {
		return err
	}

	d.registry.setDocumentFolder(tenantID, documentID, folderID)
	return nil
}

// List returns the tenant's documents, scoped at the query layer, and
// refreshes the registry's mirror of them.
func (d *Documents) List(ctx context.Context, ident *models.Identity, tenantID string) ([]models.Document, error) {
	if !d.registry.HasAccess(ident, tenantID) {
		return nil, &domain.ForbiddenError{Message: "no access to this tenant"}
	}

	docs, err := d.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	d.registry.replaceDocuments(tenantID, docs)
	return models.CloneDocuments(docs), nil
}

// Download fetches the payload for one document.
func (d *Documents) Download(ctx context.Context, ident *models.Identity, tenantID, documentID string) ([]byte, *models.Document, error) {
	if !d.registry.HasAccess(ident, tenantID) {
		return nil, nil, &domain.ForbiddenError{Message: "no access to this tenant"}
	}

	doc, ok := d.registry.documentOf(tenantID, documentID)
	if !ok {
		docs, err := d.repo.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("list documents: %w", err)
		}
		d.registry.replaceDocuments(tenantID, docs)
		for i := range docs {
			if docs[i].ID == documentID {
				found := docs[i].Clone()
				doc = &found
				break
			}
		}
		if doc == nil {
			return nil, nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", documentID)}
		}
	}

	data, err := d.blobs.Download(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("download document payload: %w", err)
	}
	return data, doc, nil
}

// validateFolder checks that the folder exists and belongs to the
// tenant.
func (d *Documents) validateFolder(ctx context.Context, tenantID, folderID string) error {
	folders, err := d.folders.ListByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("validate target folder: %w", err)
	}
	for i := range folders {
		if folders[i].ID == folderID {
			return nil
		}
	}
	return &domain.ValidationError{Message: fmt.Sprintf("folder %s does not belong to this tenant", folderID)}
}

// documentType derives the display type from the file extension,
// upper-cased. Files without an extension get "FILE".
func documentType(fileName string) string {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if ext == "" {
		return "FILE"
	}
	return strings.ToUpper(ext)
}

var _ services.DocumentStore = (*Documents)(nil)
