package repositories

import (
	"context"

	"extportal/internal/domain/models"
)

// FolderRepository is the remote-store contract for folder records.
type FolderRepository interface {
	// ListByTenant returns the tenant's flat folder list, ordered by
	// creation time ascending.
	ListByTenant(ctx context.Context, tenantID string) ([]models.Folder, error)

	// Insert stores a new folder.
	Insert(ctx context.Context, folder *models.Folder) error

	// Update overwrites name, parent and updated-at of a folder.
	Update(ctx context.Context, folder *models.Folder) error

	// Delete removes a single folder row.
	Delete(ctx context.Context, id, tenantID string) error

	// DeleteMany removes a set of folder rows in one call.
	DeleteMany(ctx context.Context, tenantID string, ids []string) error

	// ReparentChildren moves every immediate child of fromParent under
	// toParent. Used by the promote-delete policy.
	ReparentChildren(ctx context.Context, tenantID string, fromParent string, toParent *string) error
}
