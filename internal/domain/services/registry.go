package services

import (
	"context"
	"time"

	"extportal/internal/domain/models"
)

// TenantDraft carries the admin-supplied attributes of a new tenant.
// ID, blocked flag and the document collection are owned by the registry.
type TenantDraft struct {
	CNPJ            string     `json:"cnpj"`
	Name            string     `json:"name"`
	Password        string     `json:"password"`
	Email           *string    `json:"email"`
	MaintenanceDate *time.Time `json:"maintenance_date"`
}

// TenantRegistry owns the canonical in-memory tenant list and mediates
// every mutation against the remote store. The one rule that must hold
// for every mutator: no local state changes before the remote call
// succeeds.
type TenantRegistry interface {
	// Load replaces the in-memory list with remote truth (ordered by
	// creation time descending) and refreshes the cache mirror. On a
	// transient remote failure it falls back to the cache; when the
	// cache is empty too and the caller is an admin, it seeds the
	// deterministic example tenants. Concurrent calls coalesce.
	Load(ctx context.Context, ident *models.Identity) error

	// Add creates a tenant (remote first) and, when the draft carries an
	// email, provisions a login credential afterwards. The returned
	// outcome reports the provisioning branch; provisioning failure does
	// not roll back the tenant.
	Add(ctx context.Context, ident *models.Identity, draft *TenantDraft) (*models.Tenant, ProvisionOutcome, error)

	// Update overwrites a tenant's mutable attributes. The caller must
	// have access to the tenant.
	Update(ctx context.Context, ident *models.Identity, tenant *models.Tenant) error

	// Delete removes a tenant and best-effort deprovisions its
	// credential. Admin only. Clears the selection when the deleted
	// tenant was selected.
	Delete(ctx context.Context, ident *models.Identity, id string) error

	// Block and Unblock flip the blocked flag. Admin only.
	Block(ctx context.Context, ident *models.Identity, id string) error
	Unblock(ctx context.Context, ident *models.Identity, id string) error

	// HasAccess reports whether the identity may touch the tenant:
	// admins always, clients only their own (by link or email match).
	HasAccess(ident *models.Identity, id string) bool

	// Get returns a deep copy of one tenant.
	Get(id string) (*models.Tenant, bool)

	// FindByEmail returns a deep copy of the tenant with the given login
	// email, if any.
	FindByEmail(email string) (*models.Tenant, bool)

	// Snapshot returns a deep copy of the full list.
	Snapshot() []models.Tenant

	// Active returns the non-blocked tenants.
	Active() []models.Tenant

	// Select sets the selected-tenant pointer, enforcing access. Passing
	// nil clears the selection.
	Select(ident *models.Identity, id *string) error

	// Selected returns the selected tenant, if any.
	Selected() *models.Tenant

	// SetPendingEdit and PendingEdit track the tenant open in an edit
	// form, so updates propagate to it.
	SetPendingEdit(id *string)
	PendingEdit() *models.Tenant
}
