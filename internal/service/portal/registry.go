// Package portal implements the client-portal core: the tenant
// registry, the folder hierarchy, the document store, identity
// resolution and credential provisioning. Remote truth comes first in
// every mutation - local state only changes after the remote store has
// accepted the write.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"extportal/internal/config"
	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
	"extportal/internal/domain/services"
)

// RegistryDeps wires the registry's collaborators.
type RegistryDeps struct {
	Tenants     repositories.TenantRepository
	Documents   repositories.DocumentRepository
	Cache       repositories.SnapshotCache
	Provisioner services.CredentialProvisioner
	Settings    *config.Settings
	Logger      *slog.Logger
}

// Registry is the single writer over the in-memory tenant list. All
// mutators follow the same shape: remote call first, then the local
// apply, then a best-effort cache mirror.
type Registry struct {
	mu          sync.Mutex
	tenants     []models.Tenant
	selected    *string
	pendingEdit *string
	loading     bool

	repo        repositories.TenantRepository
	docs        repositories.DocumentRepository
	cache       repositories.SnapshotCache
	provisioner services.CredentialProvisioner
	settings    *config.Settings
	logger      *slog.Logger
}

// NewRegistry creates a tenant registry.
func NewRegistry(deps RegistryDeps) *Registry {
	return &Registry{
		repo:        deps.Tenants,
		docs:        deps.Documents,
		cache:       deps.Cache,
		provisioner: deps.Provisioner,
		settings:    deps.Settings,
		logger:      deps.Logger,
	}
}

// Load replaces the in-memory list with remote truth. Concurrent calls
// coalesce: while one load is in flight, further calls return
// immediately. On a transient remote failure the cache mirror is
// served; an empty mirror seeds the example tenants for admins.
func (r *Registry) Load(ctx context.Context, ident *models.Identity) error {
	r.mu.Lock()
	if r.loading {
		r.mu.Unlock()
		return nil
	}
	r.loading = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.loading = false
		r.mu.Unlock()
	}()

	tenants, err := r.repo.ListAll(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			return r.loadFallback(ctx, ident, err)
		}
		return fmt.Errorf("load tenants: %w", err)
	}

	// Attach each tenant's document collection. A failure here degrades
	// to empty collections rather than failing the whole load.
	if docs, derr := r.docs.ListAll(ctx); derr != nil {
		r.logger.Warn("loading documents failed, tenant collections left empty", "error", derr)
	} else {
		byTenant := make(map[string][]models.Document, len(tenants))
		for _, doc := range docs {
			byTenant[doc.TenantID] = append(byTenant[doc.TenantID], doc)
		}
		for i := range tenants {
			tenants[i].Documents = byTenant[tenants[i].ID]
		}
	}

	r.mu.Lock()
	r.apply(tenants)
	r.mu.Unlock()

	r.mirror(ctx)
	return nil
}

// loadFallback serves the cache mirror when the remote store is
// unreachable, seeding the deterministic example tenants for admins
// when the mirror is empty too.
func (r *Registry) loadFallback(ctx context.Context, ident *models.Identity, cause error) error {
	cached, err := r.cache.LoadTenants(ctx)
	if err == nil {
		r.logger.Warn("remote store unavailable, serving cached tenant snapshot", "error", cause, "tenants", len(cached))
		r.mu.Lock()
		r.apply(cached)
		r.mu.Unlock()
		return nil
	}

	if ident.IsAdmin() {
		seeds := seedTenants(r.settings)
		r.logger.Warn("remote store and cache unavailable, seeding example tenants", "error", cause, "tenants", len(seeds))
		r.mu.Lock()
		r.apply(seeds)
		r.mu.Unlock()
		return nil
	}

	return fmt.Errorf("load tenants: %w", cause)
}

// apply replaces the tenant list and drops any selection or pending
// edit that no longer resolves. Callers hold the lock.
func (r *Registry) apply(tenants []models.Tenant) {
	r.tenants = tenants
	if r.selected != nil && r.indexOf(*r.selected) < 0 {
		r.selected = nil
	}
	if r.pendingEdit != nil && r.indexOf(*r.pendingEdit) < 0 {
		r.pendingEdit = nil
	}
}

// Add creates a tenant, remote first, then provisions its credential
// when the draft carries an email. Provisioning failure never rolls
// back the tenant record.
func (r *Registry) Add(ctx context.Context, ident *models.Identity, draft *services.TenantDraft) (*models.Tenant, services.ProvisionOutcome, error) {
	if !ident.IsAdmin() {
		return nil, services.ProvisionFailed, &domain.ForbiddenError{Message: "only administrators can create tenants"}
	}
	if err := validateTenantDraft(draft); err != nil {
		return nil, services.ProvisionFailed, err
	}

	r.mu.Lock()
	for i := range r.tenants {
		if r.tenants[i].CNPJ == draft.CNPJ {
			existing := r.tenants[i].ID
			r.mu.Unlock()
			return nil, services.ProvisionFailed, &domain.ConflictError{
				Message:      fmt.Sprintf("a tenant with cnpj %q already exists", draft.CNPJ),
				ResourceType: "tenant",
				ResourceID:   existing,
			}
		}
	}
	r.mu.Unlock()

	tenant := models.Tenant{
		ID:              uuid.NewString(),
		CNPJ:            draft.CNPJ,
		Name:            draft.Name,
		Password:        draft.Password,
		Email:           draft.Email,
		MaintenanceDate: draft.MaintenanceDate,
		UserRole:        models.RoleClient,
		UserEmail:       draft.Email,
		CreatedAt:       time.Now().UTC(),
	}

	if err := r.repo.Insert(ctx, &tenant); err != nil {
		return nil, services.ProvisionFailed, err
	}

	r.mu.Lock()
	// Newest first, matching the remote ordering.
	r.tenants = append([]models.Tenant{tenant}, r.tenants...)
	r.mu.Unlock()
	r.mirror(ctx)

	outcome := services.ProvisionSkipped
	if tenant.HasEmail() {
		var perr error
		outcome, perr = r.provisioner.Provision(ctx, *tenant.Email, tenant.Password, services.CredentialLink{
			Name:     tenant.Name,
			CNPJ:     tenant.CNPJ,
			TenantID: tenant.ID,
		})
		if perr != nil {
			r.logger.Warn("credential provisioning failed", "tenant_id", tenant.ID, "error", perr)
		}
	}

	out := tenant.Clone()
	return &out, outcome, nil
}

// Update overwrites a tenant's mutable attributes, remote first. When
// the tenant has a login email the credential is re-provisioned
// best-effort so a changed password keeps working.
func (r *Registry) Update(ctx context.Context, ident *models.Identity, tenant *models.Tenant) error {
	if !r.HasAccess(ident, tenant.ID) {
		return &domain.ForbiddenError{Message: "no access to this tenant"}
	}
	draft := services.TenantDraft{
		CNPJ:            tenant.CNPJ,
		Name:            tenant.Name,
		Password:        tenant.Password,
		Email:           tenant.Email,
		MaintenanceDate: tenant.MaintenanceDate,
	}
	if err := validateTenantDraft(&draft); err != nil {
		return err
	}

	r.mu.Lock()
	idx := r.indexOf(tenant.ID)
	if idx < 0 {
		r.mu.Unlock()
		return &domain.NotFoundError{Message: fmt.Sprintf("tenant %s not found", tenant.ID)}
	}
	r.mu.Unlock()

	if err := r.repo.Update(ctx, tenant); err != nil {
		return err
	}

	r.mu.Lock()
	if idx = r.indexOf(tenant.ID); idx >= 0 {
		updated := tenant.Clone()
		// The document collection is owned by the registry, not the caller.
		updated.Documents = r.tenants[idx].Documents
		updated.CreatedAt = r.tenants[idx].CreatedAt
		r.tenants[idx] = updated
	}
	r.mu.Unlock()
	r.mirror(ctx)

	if tenant.HasEmail() && tenant.Password != "" {
		outcome, perr := r.provisioner.Provision(ctx, *tenant.Email, tenant.Password, services.CredentialLink{
			Name:     tenant.Name,
			CNPJ:     tenant.CNPJ,
			TenantID: tenant.ID,
		})
		if perr != nil {
			r.logger.Warn("credential re-provisioning failed", "tenant_id", tenant.ID, "error", perr)
		} else {
			r.logger.Info("credential re-provisioned", "tenant_id", tenant.ID, "outcome", string(outcome))
		}
	}

	return nil
}

// Delete removes a tenant, remote first, then best-effort deprovisions
// its credential. The selection is cleared when it pointed at the
// deleted tenant; nothing is auto-selected in its place.
func (r *Registry) Delete(ctx context.Context, ident *models.Identity, id string) error {
	if !ident.IsAdmin() {
		return &domain.ForbiddenError{Message: "only administrators can delete tenants"}
	}

	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return &domain.NotFoundError{Message: fmt.Sprintf("tenant %s not found", id)}
	}
	doomed := r.tenants[idx].Clone()
	r.mu.Unlock()

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := r.provisioner.Deprovision(ctx, &doomed); err != nil {
		r.logger.Warn("credential deprovisioning failed", "tenant_id", id, "error", err)
	}

	r.mu.Lock()
	if idx = r.indexOf(id); idx >= 0 {
		r.tenants = append(r.tenants[:idx], r.tenants[idx+1:]...)
	}
	if r.selected != nil && *r.selected == id {
		r.selected = nil
	}
	if r.pendingEdit != nil && *r.pendingEdit == id {
		r.pendingEdit = nil
	}
	r.mu.Unlock()
	r.mirror(ctx)

	return nil
}

// Block marks a tenant blocked. A blocked tenant that was selected is
// deselected so client views cannot keep working against it.
func (r *Registry) Block(ctx context.Context, ident *models.Identity, id string) error {
	if err := r.setBlocked(ctx, ident, id, true); err != nil {
		return err
	}
	r.mu.Lock()
	if r.selected != nil && *r.selected == id {
		r.selected = nil
	}
	r.mu.Unlock()
	return nil
}

// Unblock clears the blocked flag.
func (r *Registry) Unblock(ctx context.Context, ident *models.Identity, id string) error {
	return r.setBlocked(ctx, ident, id, false)
}

func (r *Registry) setBlocked(ctx context.Context, ident *models.Identity, id string, blocked bool) error {
	if !ident.IsAdmin() {
		return &domain.ForbiddenError{Message: "only administrators can block tenants"}
	}

	if err := r.repo.SetBlocked(ctx, id, blocked); err != nil {
		return err
	}

	r.mu.Lock()
	if idx := r.indexOf(id); idx >= 0 {
		r.tenants[idx].IsBlocked = blocked
	}
	r.mu.Unlock()
	r.mirror(ctx)
	return nil
}

// HasAccess reports whether the identity may touch the tenant. Admins
// always may; clients only their own tenant, matched by the resolved
// link or by login email.
func (r *Registry) HasAccess(ident *models.Identity, id string) bool {
	if ident == nil {
		return false
	}
	if ident.IsAdmin() {
		return true
	}
	if ident.TenantID != nil && *ident.TenantID == id {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.tenants[idx].EmailEquals(ident.Email)
	}
	return false
}

// Get returns a deep copy of one tenant.
func (r *Registry) Get(id string) (*models.Tenant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(id); idx >= 0 {
		out := r.tenants[idx].Clone()
		return &out, true
	}
	return nil, false
}

// FindByEmail returns a deep copy of the tenant with the given login
// email.
func (r *Registry) FindByEmail(email string) (*models.Tenant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tenants {
		if r.tenants[i].EmailEquals(email) {
			out := r.tenants[i].Clone()
			return &out, true
		}
	}
	return nil, false
}

// Snapshot returns a deep copy of the full tenant list.
func (r *Registry) Snapshot() []models.Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.CloneTenants(r.tenants)
}

// Active returns the non-blocked tenants.
func (r *Registry) Active() []models.Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tenant
	for i := range r.tenants {
		if !r.tenants[i].IsBlocked {
			out = append(out, r.tenants[i].Clone())
		}
	}
	return out
}

// Select sets the selected-tenant pointer. Clients cannot select a
// blocked tenant; administrators can, for support work.
func (r *Registry) Select(ident *models.Identity, id *string) error {
	if id == nil {
		r.mu.Lock()
		r.selected = nil
		r.mu.Unlock()
		return nil
	}

	if !r.HasAccess(ident, *id) {
		return &domain.ForbiddenError{Message: "no access to this tenant"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(*id)
	if idx < 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("tenant %s not found", *id)}
	}
	if r.tenants[idx].IsBlocked && !ident.IsAdmin() {
		return &domain.ForbiddenError{Message: "this tenant is blocked"}
	}

	selected := *id
	r.selected = &selected
	return nil
}

// Selected returns a deep copy of the selected tenant, if any.
func (r *Registry) Selected() *models.Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return nil
	}
	if idx := r.indexOf(*r.selected); idx >= 0 {
		out := r.tenants[idx].Clone()
		return &out
	}
	return nil
}

// SetPendingEdit tracks the tenant open in an edit form.
func (r *Registry) SetPendingEdit(id *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == nil {
		r.pendingEdit = nil
		return
	}
	pending := *id
	r.pendingEdit = &pending
}

// PendingEdit returns a deep copy of the tenant being edited, if any.
func (r *Registry) PendingEdit() *models.Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingEdit == nil {
		return nil
	}
	if idx := r.indexOf(*r.pendingEdit); idx >= 0 {
		out := r.tenants[idx].Clone()
		return &out
	}
	return nil
}

// indexOf returns the position of a tenant or -1. Callers hold the lock.
func (r *Registry) indexOf(id string) int {
	for i := range r.tenants {
		if r.tenants[i].ID == id {
			return i
		}
	}
	return -1
}

// size reports how many tenants are loaded.
func (r *Registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tenants)
}

// mirror refreshes the cache snapshot, best effort.
func (r *Registry) mirror(ctx context.Context) {
	snapshot := r.Snapshot()
	if err := r.cache.StoreTenants(ctx, snapshot); err != nil {
		r.logger.Warn("refreshing tenant snapshot cache failed", "error", err)
	}
}

// seedTenants builds the deterministic example tenants from settings.
func seedTenants(settings *config.Settings) []models.Tenant {
	out := make([]models.Tenant, 0, len(settings.SeedTenants))
	for _, seed := range settings.SeedTenants {
		tenant := models.Tenant{
			ID:              seed.ID,
			CNPJ:            seed.CNPJ,
			Name:            seed.Name,
			Password:        seed.Password,
			MaintenanceDate: seed.MaintenanceDate,
			UserRole:        models.RoleClient,
			CreatedAt:       time.Now().UTC(),
		}
		if seed.Email != "" {
			email := seed.Email
			tenant.Email = &email
			tenant.UserEmail = &email
		}
		out = append(out, tenant)
	}
	return out
}

// Document collection helpers used by the document store. The registry
// owns the per-tenant document slices, so every mutation funnels
// through these under its lock.

func (r *Registry) documentsOf(tenantID string) []models.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(tenantID); idx >= 0 {
		return models.CloneDocuments(r.tenants[idx].Documents)
	}
	return nil
}

func (r *Registry) documentOf(tenantID, documentID string) (*models.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(tenantID)
	if idx < 0 {
		return nil, false
	}
	for i := range r.tenants[idx].Documents {
		if r.tenants[idx].Documents[i].ID == documentID {
			out := r.tenants[idx].Documents[i].Clone()
			return &out, true
		}
	}
	return nil, false
}

func (r *Registry) appendDocument(tenantID string, doc models.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(tenantID); idx >= 0 {
		// Newest first, matching the remote ordering.
		r.tenants[idx].Documents = append([]models.Document{doc}, r.tenants[idx].Documents...)
	}
}

func (r *Registry) replaceDocuments(tenantID string, docs []models.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(tenantID); idx >= 0 {
		r.tenants[idx].Documents = docs
	}
}

func (r *Registry) removeDocument(tenantID, documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(tenantID)
	if idx < 0 {
		return
	}
	docs := r.tenants[idx].Documents
	for i := range docs {
		if docs[i].ID == documentID {
			r.tenants[idx].Documents = append(docs[:i], docs[i+1:]...)
			return
		}
	}
}

func (r *Registry) setDocumentFolder(tenantID, documentID string, folderID *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(tenantID)
	if idx < 0 {
		return
	}
	for i := range r.tenants[idx].Documents {
		if r.tenants[idx].Documents[i].ID == documentID {
			r.tenants[idx].Documents[i].FolderID = folderID
			return
		}
	}
}

// reparentDocuments moves every document at fromFolder to toFolder.
func (r *Registry) reparentDocuments(tenantID, fromFolder string, toFolder *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(tenantID)
	if idx < 0 {
		return
	}
	for i := range r.tenants[idx].Documents {
		doc := &r.tenants[idx].Documents[i]
		if doc.FolderID != nil && *doc.FolderID == fromFolder {
			doc.FolderID = toFolder
		}
	}
}

// dropDocumentsInFolders removes every document sitting in one of the
// given folders.
func (r *Registry) dropDocumentsInFolders(tenantID string, folderIDs []string) {
	doomed := make(map[string]bool, len(folderIDs))
	for _, id := range folderIDs {
		doomed[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(tenantID)
	if idx < 0 {
		return
	}
	kept := r.tenants[idx].Documents[:0]
	for _, doc := range r.tenants[idx].Documents {
		if doc.FolderID == nil || !doomed[*doc.FolderID] {
			kept = append(kept, doc)
		}
	}
	r.tenants[idx].Documents = kept
}

var _ services.TenantRegistry = (*Registry)(nil)
