package services

import (
	"context"

	"extportal/internal/domain/models"
)

// FolderContents is one level of a tenant's hierarchy: the folders and
// the documents sitting exactly at that level.
type FolderContents struct {
	Folders   []models.Folder   `json:"folders"`
	Documents []models.Document `json:"documents"`
}

// FolderManager owns the flat per-tenant folder lists and every
// hierarchy operation over them. Parent/child structure is expressed
// through ParentID back-references; traversal is by filtering with an
// iteration cap, never through stored child lists.
type FolderManager interface {
	// LoadTenant pulls the tenant's folder list from the remote store
	// into local state, replacing what was there.
	LoadTenant(ctx context.Context, ident *models.Identity, tenantID string) error

	// Create adds a folder under parentID (nil = root). Admin only.
	// Rejects blank names, duplicate sibling names (case-insensitive)
	// and nesting beyond the depth limit.
	Create(ctx context.Context, ident *models.Identity, tenantID, name string, parentID *string) (*models.Folder, error)

	// Rename changes a folder's name, with the same blank/duplicate
	// checks against its current siblings. Admin only. Loads the
	// tenant's state first when another tenant's is held.
	Rename(ctx context.Context, ident *models.Identity, tenantID, folderID, newName string) (*models.Folder, error)

	// Move reparents a folder. Rejects self-parenting and any move that
	// would make the folder its own ancestor. Admin only.
	Move(ctx context.Context, ident *models.Identity, tenantID, folderID string, targetParentID *string) (*models.Folder, error)

	// Delete removes a folder. With cascade, every descendant folder and
	// document goes too; without it, immediate children are promoted to
	// the folder's own parent before the folder is removed.
	Delete(ctx context.Context, ident *models.Identity, tenantID, folderID string, cascade bool) error

	// Contents lists the folders and documents at one level of the
	// tenant's tree (folderID nil = root).
	Contents(ident *models.Identity, tenantID string, folderID *string) (*FolderContents, error)

	// Path returns the ancestor chain root-to-folder. A chain longer
	// than the traversal cap is reported as a data-integrity error.
	Path(ctx context.Context, ident *models.Identity, tenantID, folderID string) ([]models.Folder, error)

	// CurrentFolder and SetCurrentFolder track the level being viewed;
	// deleting the viewed folder resets the view to root.
	CurrentFolder() *string
	SetCurrentFolder(id *string)
}
