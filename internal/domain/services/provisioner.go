package services

import (
	"context"

	"extportal/internal/domain/models"
)

// ProvisionOutcome reports which branch a credential provisioning call
// took.
type ProvisionOutcome string

const (
	// ProvisionCreated - a new identity-provider account was created.
	ProvisionCreated ProvisionOutcome = "created"
	// ProvisionUpdated - the account existed; password and metadata were
	// rotated instead.
	ProvisionUpdated ProvisionOutcome = "updated"
	// ProvisionFailed - neither creation nor update succeeded.
	ProvisionFailed ProvisionOutcome = "failed"
	// ProvisionSkipped - the tenant has no email, nothing to provision.
	ProvisionSkipped ProvisionOutcome = "skipped"
)

// CredentialLink is the tenant metadata written onto the
// identity-provider account at provisioning time.
type CredentialLink struct {
	Name     string
	CNPJ     string
	TenantID string
}

// CredentialProvisioner keeps identity-provider accounts in sync with
// tenant records so a tenant's login works after create/edit/delete.
type CredentialProvisioner interface {
	// Provision creates an account with the given credentials, or - when
	// the address is already registered - rotates the existing account's
	// password and metadata. After either branch it reconciles the
	// profile-links row with bounded retries, because a freshly created
	// account may not be immediately visible to dependent reads.
	Provision(ctx context.Context, email, password string, link CredentialLink) (ProvisionOutcome, error)

	// Deprovision severs the profile link and disables the account
	// (metadata flag plus password rotation) so the former tenant can no
	// longer authenticate. Account deletion needs privileges this layer
	// does not assume.
	Deprovision(ctx context.Context, tenant *models.Tenant) error
}
