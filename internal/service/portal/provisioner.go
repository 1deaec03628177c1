package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"extportal/internal/auth"
	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/repositories"
	"extportal/internal/domain/services"
	"extportal/internal/retry"
)

// ProvisionerDeps wires the credential provisioner's collaborators.
type ProvisionerDeps struct {
	Provider auth.IdentityProvider
	Profiles repositories.ProfileRepository
	Logger   *slog.Logger
	// Policy bounds the profile reconciliation loop. Zero value gets
	// the default.
	Policy retry.Policy
	// Sleep and Now are injectable for deterministic tests.
	Sleep retry.SleepFunc
	Now   func() time.Time
}

// defaultPolicy rides out the identity provider's eventual consistency:
// a freshly created account may not be visible to dependent reads for a
// few seconds.
var defaultPolicy = retry.Policy{
	MaxAttempts: 5,
	Delay:       2 * time.Second,
	MaxElapsed:  30 * time.Second,
}

// Provisioner keeps identity-provider accounts in sync with tenant
// records.
type Provisioner struct {
	provider auth.IdentityProvider
	profiles repositories.ProfileRepository
	logger   *slog.Logger
	policy   retry.Policy
	sleep    retry.SleepFunc
	now      func() time.Time
}

// NewProvisioner creates a credential provisioner.
func NewProvisioner(deps ProvisionerDeps) *Provisioner {
	policy := deps.Policy
	if policy.MaxAttempts == 0 {
		policy = defaultPolicy
	}
	return &Provisioner{
		provider: deps.Provider,
		profiles: deps.Profiles,
		logger:   deps.Logger,
		policy:   policy,
		sleep:    deps.Sleep,
		now:      deps.Now,
	}
}

// Provision creates an account for the email, or - when the address is
// already registered - rotates the existing account's password and
// metadata. After either branch the profile-links row is reconciled
// with bounded retries.
func (p *Provisioner) Provision(ctx context.Context, email, password string, link services.CredentialLink) (services.ProvisionOutcome, error) {
	role := string(models.RoleClient)
	patch := auth.MetadataPatch{
		Name:     &link.Name,
		CNPJ:     &link.CNPJ,
		Role:     &role,
		TenantID: &link.TenantID,
	}

	outcome := services.ProvisionCreated
	_, err := p.provider.SignUp(email, password, patch)
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return services.ProvisionFailed, fmt.Errorf("create account %s: %w", email, err)
		}

		// The address is taken: rotate the existing account instead.
		if uerr := p.provider.UpdatePassword(email, password); uerr != nil {
			return services.ProvisionFailed, fmt.Errorf("rotate password for %s: %w", email, uerr)
		}
		if uerr := p.provider.UpdateMetadata(email, patch); uerr != nil {
			return services.ProvisionFailed, fmt.Errorf("rewrite metadata for %s: %w", email, uerr)
		}
		outcome = services.ProvisionUpdated
	}

	p.reconcileProfile(ctx, email, link)
	return outcome, nil
}

// reconcileProfile upserts the profile-links row with bounded retries.
// A final failure is logged, not returned: the account itself is in
// place and the resolver's email fallback still links the session.
func (p *Provisioner) reconcileProfile(ctx context.Context, email string, link services.CredentialLink) {
	tenantID := link.TenantID
	profile := models.Profile{
		Email:    email,
		TenantID: &tenantID,
		Role:     models.RoleClient,
		Name:     link.Name,
		CNPJ:     link.CNPJ,
	}

	err := retry.Do(ctx, p.policy, p.sleep, p.now, func(ctx context.Context) error {
		return p.profiles.Upsert(ctx, &profile)
	})
	if err != nil {
		p.logger.Warn("profile reconciliation gave up", "email", email, "tenant_id", link.TenantID, "error", err)
		return
	}
	p.logger.Info("profile reconciled", "email", email, "tenant_id", link.TenantID)
}

// Deprovision severs the profile link and disables the account so the
// former tenant can no longer authenticate. Deleting the account
// outright needs privileges this layer does not assume, so the
// password is rotated to a random value instead.
func (p *Provisioner) Deprovision(ctx context.Context, tenant *models.Tenant) error {
	var errs []error

	if err := p.profiles.SeverTenantLink(ctx, tenant.ID); err != nil {
		errs = append(errs, fmt.Errorf("sever profile link: %w", err))
	}

	if tenant.HasEmail() {
		email := *tenant.Email
		disabled := true
		cleared := ""
		patch := auth.MetadataPatch{Disabled: &disabled, TenantID: &cleared}
		if err := p.provider.UpdateMetadata(email, patch); err != nil {
			errs = append(errs, fmt.Errorf("disable account %s: %w", email, err))
		}
		if err := p.provider.UpdatePassword(email, uuid.NewString()); err != nil {
			errs = append(errs, fmt.Errorf("rotate password for %s: %w", email, err))
		}
	}

	return errors.Join(errs...)
}

var _ services.CredentialProvisioner = (*Provisioner)(nil)
