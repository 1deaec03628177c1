package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"extportal/internal/config"
	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
	"extportal/internal/domain/services"
)

// FolderDeps wires the folder manager's collaborators.
type FolderDeps struct {
	Registry  *Registry
	Folders   repositories.FolderRepository
	Documents repositories.DocumentRepository
	Logger    *slog.Logger
}

// Folders manages one tenant's folder tree at a time. The tree lives as
// a flat list with ParentID back-references; structure queries filter
// the list, ancestry walks are capped so corrupted chains cannot loop
// forever. The mutex also serializes mutations, keeping the
// remote-then-local ordering atomic per operation.
type Folders struct {
	mu       sync.Mutex
	tenantID string
	folders  []models.Folder
	current  *string

	registry *Registry
	repo     repositories.FolderRepository
	docs     repositories.DocumentRepository
	logger   *slog.Logger
}

// NewFolders creates a folder manager.
func NewFolders(deps FolderDeps) *Folders {
	return &Folders{
		registry: deps.Registry,
		repo:     deps.Folders,
		docs:     deps.Documents,
		logger:   deps.Logger,
	}
}

// LoadTenant replaces the folder state with the tenant's remote list.
func (f *Folders) LoadTenant(ctx context.Context, ident *models.Identity, tenantID string) error {
	if !f.registry.HasAccess(ident, tenantID) {
		return &domain.ForbiddenError{Message: "no access to this tenant"}
	}

	folders, err := f.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load folders: %w", err)
	}

	f.mu.Lock()
	f.tenantID = tenantID
	f.folders = folders
	f.current = nil
	f.mu.Unlock()
	return nil
}

// Create adds a folder under parentID (nil = root).
func (f *Folders) Create(ctx context.Context, ident *models.Identity, tenantID, name string, parentID *string) (*models.Folder, error) {
	if !ident.IsAdmin() {
		return nil, &domain.ForbiddenError{Message: "only administrators can create folders"}
	}
	if err := validateFolderName(name); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(ctx, tenantID); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent := f.find(*parentID)
		if parent == nil {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("parent folder %s not found", *parentID)}
		}
		depth, err := f.depthOf(*parentID)
		if err != nil {
			return nil, err
		}
		if depth+1 > config.MaxFolderDepth {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("folders cannot be nested more than %d levels deep", config.MaxFolderDepth),
			}
		}
	}

	if dup := f.siblingNamed(parentID, name, ""); dup != nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", name),
			ResourceType: "folder",
			ResourceID:   dup.ID,
		}
	}

	now := time.Now().UTC()
	folder := models.Folder{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(name),
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := f.repo.Insert(ctx, &folder); err != nil {
		return nil, err
	}

	f.folders = append(f.folders, folder)
	out := folder.Clone()
	return &out, nil
}

// Rename changes a folder's name after re-checking its siblings.
func (f *Folders) Rename(ctx context.Context, ident *models.Identity, tenantID, folderID, newName string) (*models.Folder, error) {
	if !ident.IsAdmin() {
		return nil, &domain.ForbiddenError{Message: "only administrators can rename folders"}
	}
	if err := validateFolderName(newName); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(ctx, tenantID); err != nil {
		return nil, err
	}

	folder := f.find(folderID)
	if folder == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
	}

	if dup := f.siblingNamed(folder.ParentID, newName, folderID); dup != nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", newName),
			ResourceType: "folder",
			ResourceID:   dup.ID,
		}
	}

	updated := folder.Clone()
	updated.Name = strings.TrimSpace(newName)
	updated.UpdatedAt = time.Now().UTC()

	if err := f.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	*folder = updated
	out := updated.Clone()
	return &out, nil
}

// Move reparents a folder. A folder can never become its own ancestor.
func (f *Folders) Move(ctx context.Context, ident *models.Identity, tenantID, folderID string, targetParentID *string) (*models.Folder, error) {
	if !ident.IsAdmin() {
		return nil, &domain.ForbiddenError{Message: "only administrators can move folders"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(ctx, tenantID); err != nil {
		return nil, err
	}

	folder := f.find(folderID)
	if folder == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
	}

	if targetParentID != nil {
		if *targetParentID == folderID {
			return nil, &domain.ValidationError{Message: "a folder cannot be moved into itself"}
		}
		target := f.find(*targetParentID)
		if target == nil {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("target folder %s not found", *targetParentID)}
		}

		// Walk the target's ancestry: finding the moved folder there
		// means the move would create a cycle.
		ancestors, err := f.ancestryOf(*targetParentID)
		if err != nil {
			return nil, err
		}
		for _, ancestor := range ancestors {
			if ancestor.ID == folderID {
				return nil, &domain.ValidationError{Message: "a folder cannot be moved into one of its own subfolders"}
			}
		}

		depth := len(ancestors) + 1
		if depth+1 > config.MaxFolderDepth {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("folders cannot be nested more than %d levels deep", config.MaxFolderDepth),
			}
		}
	}

	if dup := f.siblingNamed(targetParentID, folder.Name, folderID); dup != nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in the target location", folder.Name),
			ResourceType: "folder",
			ResourceID:   dup.ID,
		}
	}

	updated := folder.Clone()
	updated.ParentID = targetParentID
	updated.UpdatedAt = time.Now().UTC()

	if err := f.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	*folder = updated
	out := updated.Clone()
	return &out, nil
}

// Delete removes a folder. Without cascade, immediate children (folders
// and documents) are promoted to the deleted folder's parent before the
// folder itself goes; with cascade, the whole subtree and its documents
// are removed. Deleting the folder being viewed resets the view to root.
func (f *Folders) Delete(ctx context.Context, ident *models.Identity, tenantID, folderID string, cascade bool) error {
	if !ident.IsAdmin() {
		return &domain.ForbiddenError{Message: "only administrators can delete folders"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(ctx, tenantID); err != nil {
		return err
	}

	folder := f.find(folderID)
	if folder == nil {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
	}

	if cascade {
		doomed := f.subtreeIDs(folderID)

		if err := f.docs.DeleteByFolders(ctx, tenantID, doomed); err != nil {
			return fmt.Errorf("delete folder documents: %w", err)
		}
		if err := f.repo.DeleteMany(ctx, tenantID, doomed); err != nil {
			return fmt.Errorf("delete folder subtree: %w", err)
		}

		f.dropFolders(doomed)
		f.registry.dropDocumentsInFolders(tenantID, doomed)
		f.resetCurrentIfIn(doomed)
		return nil
	}

	// Promote: children move up before the folder goes, so a failure
	// between the steps never orphans them.
	if err := f.docs.ReparentFolder(ctx, tenantID, folderID, folder.ParentID); err != nil {
		return fmt.Errorf("promote folder documents: %w", err)
	}
	if err := f.repo.ReparentChildren(ctx, tenantID, folderID, folder.ParentID); err != nil {
		return fmt.Errorf("promote child folders: %w", err)
	}
	if err := f.repo.Delete(ctx, folderID, tenantID); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	parentID := folder.ParentID
	for i := range f.folders {
		if f.folders[i].ParentID != nil && *f.folders[i].ParentID == folderID {
			f.folders[i].ParentID = parentID
		}
	}
	f.registry.reparentDocuments(tenantID, folderID, parentID)
	f.dropFolders([]string{folderID})
	f.resetCurrentIfIn([]string{folderID})
	return nil
}

// Contents lists the folders and documents at one level of the tree.
func (f *Folders) Contents(ident *models.Identity, tenantID string, folderID *string) (*services.FolderContents, error) {
	if !f.registry.HasAccess(ident, tenantID) {
		return nil, &domain.ForbiddenError{Message: "no access to this tenant"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tenantID != tenantID {
		return nil, &domain.ValidationError{Message: "folder state not loaded for this tenant"}
	}
	if folderID != nil && f.find(*folderID) == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", *folderID)}
	}

	contents := &services.FolderContents{}
	for i := range f.folders {
		if f.folders[i].IsChildOf(folderID) {
			contents.Folders = append(contents.Folders, f.folders[i].Clone())
		}
	}
	for _, doc := range f.registry.documentsOf(tenantID) {
		if doc.InFolder(folderID) {
			contents.Documents = append(contents.Documents, doc)
		}
	}
	return contents, nil
}

// Path returns the ancestor chain from the root down to the folder.
func (f *Folders) Path(ctx context.Context, ident *models.Identity, tenantID, folderID string) ([]models.Folder, error) {
	if !f.registry.HasAccess(ident, tenantID) {
		return nil, &domain.ForbiddenError{Message: "no access to this tenant"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(ctx, tenantID); err != nil {
		return nil, err
	}

	folder := f.find(folderID)
	if folder == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
	}

	ancestors, err := f.ancestryOf(folderID)
	if err != nil {
		return nil, err
	}

	// ancestryOf walks child-to-root; the path reads root-to-child.
	path := make([]models.Folder, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		path = append(path, ancestors[i].Clone())
	}
	path = append(path, folder.Clone())
	return path, nil
}

// CurrentFolder returns the level being viewed (nil = root).
func (f *Folders) CurrentFolder() *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	current := *f.current
	return &current
}

// SetCurrentFolder changes the level being viewed.
func (f *Folders) SetCurrentFolder(id *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == nil {
		f.current = nil
		return
	}
	current := *id
	f.current = &current
}

// ensureLoaded pulls the tenant's folders when the state holds another
// tenant (or nothing). Callers hold the lock.
func (f *Folders) ensureLoaded(ctx context.Context, tenantID string) error {
	if f.tenantID == tenantID {
		return nil
	}
	folders, err := f.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load folders: %w", err)
	}
	f.tenantID = tenantID
	f.folders = folders
	f.current = nil
	return nil
}

// find returns the folder with the given id, or nil. Callers hold the
// lock; the pointer aliases internal state.
func (f *Folders) find(id string) *models.Folder {
	for i := range f.folders {
		if f.folders[i].ID == id {
			return &f.folders[i]
		}
	}
	return nil
}

// siblingNamed returns a folder under parentID whose name matches
// case-insensitively, excluding excludeID. Callers hold the lock.
func (f *Folders) siblingNamed(parentID *string, name, excludeID string) *models.Folder {
	trimmed := strings.TrimSpace(name)
	for i := range f.folders {
		if f.folders[i].ID == excludeID {
			continue
		}
		if f.folders[i].IsChildOf(parentID) && strings.EqualFold(f.folders[i].Name, trimmed) {
			return &f.folders[i]
		}
	}
	return nil
}

// ancestryOf walks the parent chain child-to-root. A chain longer than
// the traversal cap means the stored data loops and is reported as an
// integrity error. A dangling parent reference ends the walk.
func (f *Folders) ancestryOf(folderID string) ([]*models.Folder, error) {
	var chain []*models.Folder
	folder := f.find(folderID)
	if folder == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
	}

	for i := 0; folder.ParentID != nil; i++ {
		if i >= config.MaxPathWalk {
			f.logger.Error("folder ancestry exceeds traversal cap", "folder_id", folderID, "tenant_id", f.tenantID)
			return nil, &domain.IntegrityError{
				Message: fmt.Sprintf("folder %s has an ancestry longer than %d levels; stored hierarchy may contain a cycle", folderID, config.MaxPathWalk),
			}
		}
		parent := f.find(*folder.ParentID)
		if parent == nil {
			break
		}
		chain = append(chain, parent)
		folder = parent
	}
	return chain, nil
}

// depthOf returns the folder's depth, where a root-level folder is 1.
func (f *Folders) depthOf(folderID string) (int, error) {
	ancestors, err := f.ancestryOf(folderID)
	if err != nil {
		return 0, err
	}
	return len(ancestors) + 1, nil
}

// subtreeIDs collects the folder and every descendant. Callers hold the
// lock.
func (f *Folders) subtreeIDs(folderID string) []string {
	ids := []string{folderID}
	for cursor := 0; cursor < len(ids); cursor++ {
		for i := range f.folders {
			if f.folders[i].ParentID != nil && *f.folders[i].ParentID == ids[cursor] {
				ids = append(ids, f.folders[i].ID)
			}
		}
	}
	return ids
}

func (f *Folders) dropFolders(ids []string) {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}
	kept := f.folders[:0]
	for _, folder := range f.folders {
		if !doomed[folder.ID] {
			kept = append(kept, folder)
		}
	}
	f.folders = kept
}

func (f *Folders) resetCurrentIfIn(ids []string) {
	if f.current == nil {
		return
	}
	for _, id := range ids {
		if *f.current == id {
			f.current = nil
			return
		}
	}
}

var _ services.FolderManager = (*Folders)(nil)
