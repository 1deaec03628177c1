package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/services"
	"extportal/internal/retry"
)

func newTestProvisioner(provider *fakeProvider, profiles *fakeProfileRepo) *Provisioner {
	return NewProvisioner(ProvisionerDeps{
		Provider: provider,
		Profiles: profiles,
		Logger:   testLogger(),
		Policy:   retry.Policy{MaxAttempts: 3, Delay: time.Millisecond},
		Sleep:    noSleep,
	})
}

func TestProvisionCreatesNewAccount(t *testing.T) {
	provider := newFakeProvider()
	profiles := newFakeProfileRepo()
	p := newTestProvisioner(provider, profiles)

	outcome, err := p.Provision(context.Background(), "novo@example.com", "senha123", services.CredentialLink{
		Name: "Empresa Nova", CNPJ: "11111111000111", TenantID: "t-1",
	})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if outcome != services.ProvisionCreated {
		t.Errorf("outcome = %q, want %q", outcome, services.ProvisionCreated)
	}

	account := provider.accounts["novo@example.com"]
	if account == nil {
		t.Fatal("no account created")
	}
	if account.Password != "senha123" {
		t.Errorf("account password = %q", account.Password)
	}
	if account.Meta["clientId"] != "t-1" || account.Meta["role"] != "client" {
		t.Errorf("account metadata = %v", account.Meta)
	}

	profile, err := profiles.GetByEmail(context.Background(), "novo@example.com")
	if err != nil {
		t.Fatalf("profile not reconciled: %v", err)
	}
	if profile.TenantID == nil || *profile.TenantID != "t-1" {
		t.Errorf("profile tenant link = %v, want t-1", profile.TenantID)
	}
}

func TestProvisionUpdatesExistingAccount(t *testing.T) {
	provider := newFakeProvider()
	provider.accounts["taken@example.com"] = &fakeAccount{Password: "antiga", Meta: map[string]interface{}{}}
	profiles := newFakeProfileRepo()
	p := newTestProvisioner(provider, profiles)

	outcome, err := p.Provision(context.Background(), "taken@example.com", "nova-senha", services.CredentialLink{
		Name: "Empresa", CNPJ: "11111111000111", TenantID: "t-1",
	})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if outcome != services.ProvisionUpdated {
		t.Errorf("outcome = %q, want %q", outcome, services.ProvisionUpdated)
	}

	account := provider.accounts["taken@example.com"]
	if account.Password != "nova-senha" {
		t.Errorf("password not rotated, still %q", account.Password)
	}
	if account.Meta["clientId"] != "t-1" {
		t.Errorf("metadata not rewritten: %v", account.Meta)
	}
}

func TestProvisionSameEmailTwiceIsCreatedThenUpdated(t *testing.T) {
	provider := newFakeProvider()
	profiles := newFakeProfileRepo()
	p := newTestProvisioner(provider, profiles)
	link := services.CredentialLink{Name: "Empresa", CNPJ: "11111111000111", TenantID: "t-1"}

	first, err := p.Provision(context.Background(), "dup@example.com", "senha1", link)
	if err != nil || first != services.ProvisionCreated {
		t.Fatalf("first Provision() = %q, %v; want created, nil", first, err)
	}

	link.TenantID = "t-2"
	second, err := p.Provision(context.Background(), "dup@example.com", "senha2", link)
	if err != nil || second != services.ProvisionUpdated {
		t.Fatalf("second Provision() = %q, %v; want updated, nil", second, err)
	}
	if provider.accounts["dup@example.com"].Meta["clientId"] != "t-2" {
		t.Error("second provisioning did not relink the account")
	}
}

func TestProvisionReportsFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.signUpErr = errors.New("identity provider down")
	p := newTestProvisioner(provider, newFakeProfileRepo())

	outcome, err := p.Provision(context.Background(), "x@example.com", "senha", services.CredentialLink{TenantID: "t-1"})
	if err == nil {
		t.Fatal("Provision() should surface the provider failure")
	}
	if outcome != services.ProvisionFailed {
		t.Errorf("outcome = %q, want %q", outcome, services.ProvisionFailed)
	}
}

func TestProvisionUpdateBranchFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.accounts["taken@example.com"] = &fakeAccount{Password: "antiga", Meta: map[string]interface{}{}}
	provider.updateErr = errors.New("update rejected")
	p := newTestProvisioner(provider, newFakeProfileRepo())

	outcome, err := p.Provision(context.Background(), "taken@example.com", "nova", services.CredentialLink{TenantID: "t-1"})
	if err == nil || outcome != services.ProvisionFailed {
		t.Errorf("Provision() = %q, %v; want failed with error", outcome, err)
	}
}

func TestProfileReconciliationRetriesUntilVisible(t *testing.T) {
	provider := newFakeProvider()
	profiles := newFakeProfileRepo()
	profiles.failNext = 2 // the first two upserts hit the consistency gap
	p := newTestProvisioner(provider, profiles)

	if _, err := p.Provision(context.Background(), "novo@example.com", "senha", services.CredentialLink{TenantID: "t-1"}); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if profiles.upserts != 3 {
		t.Errorf("upsert attempts = %d, want 3", profiles.upserts)
	}
	if _, err := profiles.GetByEmail(context.Background(), "novo@example.com"); err != nil {
		t.Errorf("profile missing after retries: %v", err)
	}
}

func TestProfileReconciliationGivesUpQuietly(t *testing.T) {
	provider := newFakeProvider()
	profiles := newFakeProfileRepo()
	profiles.failNext = 10 // beyond the policy's attempts
	p := newTestProvisioner(provider, profiles)

	outcome, err := p.Provision(context.Background(), "novo@example.com", "senha", services.CredentialLink{TenantID: "t-1"})
	if err != nil {
		t.Fatalf("Provision() error = %v, reconciliation failures must not surface", err)
	}
	if outcome != services.ProvisionCreated {
		t.Errorf("outcome = %q, want %q", outcome, services.ProvisionCreated)
	}
	if profiles.upserts != 3 {
		t.Errorf("upsert attempts = %d, want the policy's 3", profiles.upserts)
	}
}

func TestDeprovisionSeversLinkAndDisablesAccount(t *testing.T) {
	email := "ex@example.com"
	provider := newFakeProvider()
	provider.accounts[email] = &fakeAccount{Password: "senha123", Meta: map[string]interface{}{"clientId": "t-1"}}
	profiles := newFakeProfileRepo()
	tenantID := "t-1"
	profiles.profiles[email] = models.Profile{Email: email, TenantID: &tenantID}
	p := newTestProvisioner(provider, profiles)

	tenant := sampleTenant("t-1", "11111111000111", "Alpha", &email)
	if err := p.Deprovision(context.Background(), &tenant); err != nil {
		t.Fatalf("Deprovision() error = %v", err)
	}

	profile, _ := profiles.GetByEmail(context.Background(), email)
	if profile.TenantID != nil {
		t.Errorf("profile link not severed: %v", *profile.TenantID)
	}
	account := provider.accounts[email]
	if account.Meta["disabled"] != true {
		t.Error("account not flagged disabled")
	}
	if account.Meta["clientId"] != "" {
		t.Errorf("account tenant link not cleared: %v", account.Meta["clientId"])
	}
	if account.Password == "senha123" {
		t.Error("password not rotated on deprovision")
	}
}

func TestDeprovisionWithoutEmailOnlySeversLink(t *testing.T) {
	provider := newFakeProvider()
	profiles := newFakeProfileRepo()
	p := newTestProvisioner(provider, profiles)

	tenant := sampleTenant("t-1", "11111111000111", "Alpha", nil)
	if err := p.Deprovision(context.Background(), &tenant); err != nil {
		t.Fatalf("Deprovision() error = %v", err)
	}
	if len(provider.patches) != 0 {
		t.Error("provider touched for a tenant without an email")
	}
}

func TestProvisionFailureIsConflictAware(t *testing.T) {
	// A non-conflict failure must not fall into the update branch.
	provider := newFakeProvider()
	provider.signUpErr = domain.ErrUnavailable
	p := newTestProvisioner(provider, newFakeProfileRepo())

	outcome, err := p.Provision(context.Background(), "x@example.com", "senha", services.CredentialLink{TenantID: "t-1"})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("error = %v, want the provider failure", err)
	}
	if outcome != services.ProvisionFailed {
		t.Errorf("outcome = %q, want failed", outcome)
	}
}
