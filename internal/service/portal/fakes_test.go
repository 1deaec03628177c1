package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"extportal/internal/auth"
	"extportal/internal/config"
	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/services"
	"extportal/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func adminIdent() *models.Identity {
	return &models.Identity{UserID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}
}

func clientIdent(tenantID string) *models.Identity {
	ident := &models.Identity{UserID: "user-1", Email: "client@example.com", Role: models.RoleClient}
	if tenantID != "" {
		ident.TenantID = &tenantID
	}
	return ident
}

// fakeTenantRepo is an in-memory TenantRepository with per-operation
// failure injection.
type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants []models.Tenant
	fail    map[string]error
}

func newFakeTenantRepo(tenants ...models.Tenant) *fakeTenantRepo {
	return &fakeTenantRepo{tenants: tenants, fail: map[string]error{}}
}

func (r *fakeTenantRepo) failOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = err
}

func (r *fakeTenantRepo) ListAll(ctx context.Context) ([]models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["list"]; err != nil {
		return nil, err
	}
	return models.CloneTenants(r.tenants), nil
}

func (r *fakeTenantRepo) Insert(ctx context.Context, tenant *models.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["insert"]; err != nil {
		return err
	}
	r.tenants = append(r.tenants, tenant.Clone())
	return nil
}

func (r *fakeTenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["update"]; err != nil {
		return err
	}
	for i := range r.tenants {
		if r.tenants[i].ID == tenant.ID {
			r.tenants[i] = tenant.Clone()
			return nil
		}
	}
	return fmt.Errorf("tenant %s: %w", tenant.ID, domain.ErrNotFound)
}

func (r *fakeTenantRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["delete"]; err != nil {
		return err
	}
	for i := range r.tenants {
		if r.tenants[i].ID == id {
			r.tenants = append(r.tenants[:i], r.tenants[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
}

func (r *fakeTenantRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["setblocked"]; err != nil {
		return err
	}
	for i := range r.tenants {
		if r.tenants[i].ID == id {
			r.tenants[i].IsBlocked = blocked
			return nil
		}
	}
	return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
}

// fakeDocumentRepo is an in-memory DocumentRepository.
type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs []models.Document
	fail map[string]error
}

func newFakeDocumentRepo(docs ...models.Document) *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: docs, fail: map[string]error{}}
}

func (r *fakeDocumentRepo) failOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = err
}

func (r *fakeDocumentRepo) ListAll(ctx context.Context) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["list"]; err != nil {
		return nil, err
	}
	return models.CloneDocuments(r.docs), nil
}

func (r *fakeDocumentRepo) ListByTenant(ctx context.Context, tenantID string) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["list"]; err != nil {
		return nil, err
	}
	var out []models.Document
	for i := range r.docs {
		if r.docs[i].TenantID == tenantID {
			out = append(out, r.docs[i].Clone())
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) Insert(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["insert"]; err != nil {
		return err
	}
	r.docs = append(r.docs, doc.Clone())
	return nil
}

func (r *fakeDocumentRepo) Delete(ctx context.Context, id, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["delete"]; err != nil {
		return err
	}
	for i := range r.docs {
		if r.docs[i].ID == id && r.docs[i].TenantID == tenantID {
			r.docs = append(r.docs[:i], r.docs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
}

func (r *fakeDocumentRepo) SetFolder(ctx context.Context, id, tenantID string, folderID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["setfolder"]; err != nil {
		return err
	}
	for i := range r.docs {
		if r.docs[i].ID == id && r.docs[i].TenantID == tenantID {
			r.docs[i].FolderID = folderID
			return nil
		}
	}
	return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
}

func (r *fakeDocumentRepo) ReparentFolder(ctx context.Context, tenantID string, fromFolder string, toFolder *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["reparent"]; err != nil {
		return err
	}
	for i := range r.docs {
		if r.docs[i].TenantID == tenantID && r.docs[i].FolderID != nil && *r.docs[i].FolderID == fromFolder {
			r.docs[i].FolderID = toFolder
		}
	}
	return nil
}

func (r *fakeDocumentRepo) DeleteByFolders(ctx context.Context, tenantID string, folderIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["deletebyfolders"]; err != nil {
		return err
	}
	doomed := map[string]bool{}
	for _, id := range folderIDs {
		doomed[id] = true
	}
	kept := r.docs[:0]
	for _, doc := range r.docs {
		if doc.TenantID == tenantID && doc.FolderID != nil && doomed[*doc.FolderID] {
			continue
		}
		kept = append(kept, doc)
	}
	r.docs = kept
	return nil
}

// fakeFolderRepo is an in-memory FolderRepository.
type fakeFolderRepo struct {
	mu      sync.Mutex
	folders []models.Folder
	fail    map[string]error
}

func newFakeFolderRepo(folders ...models.Folder) *fakeFolderRepo {
	return &fakeFolderRepo{folders: folders, fail: map[string]error{}}
}

func (r *fakeFolderRepo) failOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = err
}

func (r *fakeFolderRepo) ListByTenant(ctx context.Context, tenantID string) ([]models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["list"]; err != nil {
		return nil, err
	}
	var out []models.Folder
	for i := range r.folders {
		if r.folders[i].TenantID == tenantID {
			out = append(out, r.folders[i].Clone())
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) Insert(ctx context.Context, folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["insert"]; err != nil {
		return err
	}
	r.folders = append(r.folders, folder.Clone())
	return nil
}

func (r *fakeFolderRepo) Update(ctx context.Context, folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["update"]; err != nil {
		return err
	}
	for i := range r.folders {
		if r.folders[i].ID == folder.ID {
			r.folders[i] = folder.Clone()
			return nil
		}
	}
	return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
}

func (r *fakeFolderRepo) Delete(ctx context.Context, id, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["delete"]; err != nil {
		return err
	}
	for i := range r.folders {
		if r.folders[i].ID == id && r.folders[i].TenantID == tenantID {
			r.folders = append(r.folders[:i], r.folders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
}

func (r *fakeFolderRepo) DeleteMany(ctx context.Context, tenantID string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["deletemany"]; err != nil {
		return err
	}
	doomed := map[string]bool{}
	for _, id := range ids {
		doomed[id] = true
	}
	kept := r.folders[:0]
	for _, folder := range r.folders {
		if folder.TenantID == tenantID && doomed[folder.ID] {
			continue
		}
		kept = append(kept, folder)
	}
	r.folders = kept
	return nil
}

func (r *fakeFolderRepo) ReparentChildren(ctx context.Context, tenantID string, fromParent string, toParent *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["reparent"]; err != nil {
		return err
	}
	for i := range r.folders {
		if r.folders[i].TenantID == tenantID && r.folders[i].ParentID != nil && *r.folders[i].ParentID == fromParent {
			r.folders[i].ParentID = toParent
		}
	}
	return nil
}

// fakeProfileRepo is an in-memory ProfileRepository. failNext makes the
// next N Upsert calls fail, for retry tests.
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	failNext int
	upserts  int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]models.Profile{}}
}

func (r *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[email]; ok {
		out := p
		return &out, nil
	}
	return nil, fmt.Errorf("profile %s: %w", email, domain.ErrNotFound)
}

func (r *fakeProfileRepo) Upsert(ctx context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	if r.failNext > 0 {
		r.failNext--
		return fmt.Errorf("upsert profile: %w", domain.ErrUnavailable)
	}
	r.profiles[profile.Email] = *profile
	return nil
}

func (r *fakeProfileRepo) SeverTenantLink(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, p := range r.profiles {
		if p.TenantID != nil && *p.TenantID == tenantID {
			p.TenantID = nil
			r.profiles[email] = p
		}
	}
	return nil
}

// fakeCache is an in-memory SnapshotCache.
type fakeCache struct {
	mu      sync.Mutex
	tenants []models.Tenant
	present bool
	fail    error
	stores  int
}

func (c *fakeCache) LoadTenants(ctx context.Context) ([]models.Tenant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	if !c.present {
		return nil, fmt.Errorf("tenant snapshot: %w", domain.ErrNotFound)
	}
	return models.CloneTenants(c.tenants), nil
}

func (c *fakeCache) StoreTenants(ctx context.Context, tenants []models.Tenant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.tenants = models.CloneTenants(tenants)
	c.present = true
	c.stores++
	return nil
}

// fakeBlob is an in-memory BlobStore.
type fakeBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
	deletes []string
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: map[string][]byte{}}
}

func (b *fakeBlob) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPut != nil {
		return "", b.failPut
	}
	b.objects[path] = append([]byte(nil), data...)
	return "https://blobs.test/" + path, nil
}

func (b *fakeBlob) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
	b.deletes = append(b.deletes, path)
	return nil
}

func (b *fakeBlob) Download(ctx context.Context, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", path, domain.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// fakeAccount is one identity-provider account.
type fakeAccount struct {
	Password string
	Meta     map[string]interface{}
}

// fakeProvider is an in-memory auth.IdentityProvider.
type fakeProvider struct {
	mu        sync.Mutex
	accounts  map[string]*fakeAccount
	signUpErr error
	updateErr error
	patches   []auth.MetadataPatch
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*fakeAccount{}}
}

func (p *fakeProvider) SignIn(email, password string) (*auth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	account, ok := p.accounts[email]
	if !ok || account.Password != password {
		return nil, fmt.Errorf("sign in %s: %w", email, domain.ErrUnauthorized)
	}
	return &auth.Session{AccessToken: "token", UserID: "user-" + email, Email: email}, nil
}

func (p *fakeProvider) SignUp(email, password string, meta auth.MetadataPatch) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signUpErr != nil {
		return "", p.signUpErr
	}
	if _, ok := p.accounts[email]; ok {
		return "", fmt.Errorf("account %s: %w", email, domain.ErrConflict)
	}
	p.accounts[email] = &fakeAccount{Password: password, Meta: map[string]interface{}{}}
	p.applyPatch(email, meta)
	return "user-" + email, nil
}

func (p *fakeProvider) UpdatePassword(email, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updateErr != nil {
		return p.updateErr
	}
	account, ok := p.accounts[email]
	if !ok {
		return fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
	}
	account.Password = newPassword
	return nil
}

func (p *fakeProvider) UpdateMetadata(email string, meta auth.MetadataPatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updateErr != nil {
		return p.updateErr
	}
	if _, ok := p.accounts[email]; !ok {
		return fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
	}
	p.applyPatch(email, meta)
	return nil
}

func (p *fakeProvider) RequestPasswordReset(email, redirectTo string) error {
	return nil
}

func (p *fakeProvider) applyPatch(email string, meta auth.MetadataPatch) {
	account := p.accounts[email]
	if meta.Name != nil {
		account.Meta["name"] = *meta.Name
	}
	if meta.CNPJ != nil {
		account.Meta["cnpj"] = *meta.CNPJ
	}
	if meta.Role != nil {
		account.Meta["role"] = *meta.Role
	}
	if meta.TenantID != nil {
		account.Meta["clientId"] = *meta.TenantID
	}
	if meta.Disabled != nil {
		account.Meta["disabled"] = *meta.Disabled
	}
	p.patches = append(p.patches, meta)
}

// stubProvisioner records provisioning calls for registry tests.
type stubProvisioner struct {
	mu            sync.Mutex
	outcome       services.ProvisionOutcome
	err           error
	provisioned   []string
	deprovisioned []string
}

func (s *stubProvisioner) Provision(ctx context.Context, email, password string, link services.CredentialLink) (services.ProvisionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provisioned = append(s.provisioned, email)
	if s.outcome == "" {
		return services.ProvisionCreated, s.err
	}
	return s.outcome, s.err
}

func (s *stubProvisioner) Deprovision(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deprovisioned = append(s.deprovisioned, tenant.ID)
	return nil
}

// testEnv bundles a registry plus all its fakes.
type testEnv struct {
	registry    *Registry
	tenantRepo  *fakeTenantRepo
	docRepo     *fakeDocumentRepo
	cache       *fakeCache
	provisioner *stubProvisioner
	settings    *config.Settings
}

func newTestEnv(tenants ...models.Tenant) *testEnv {
	env := &testEnv{
		tenantRepo:  newFakeTenantRepo(tenants...),
		docRepo:     newFakeDocumentRepo(),
		cache:       &fakeCache{},
		provisioner: &stubProvisioner{},
		settings: &config.Settings{
			AdminEmails: []string{"admin@example.com"},
			SeedTenants: []config.SeedTenant{
				{ID: "seed-1", CNPJ: "43779205000120", Name: "Empresa Exemplo", Password: "senha123", Email: "contato@exemplo.com.br"},
				{ID: "seed-2", CNPJ: "61148052000716", Name: "Comercio Modelo", Password: "senha123"},
			},
		},
	}
	env.registry = NewRegistry(RegistryDeps{
		Tenants:     env.tenantRepo,
		Documents:   env.docRepo,
		Cache:       env.cache,
		Provisioner: env.provisioner,
		Settings:    env.settings,
		Logger:      testLogger(),
	})
	return env
}

func sampleTenant(id, cnpj, name string, email *string) models.Tenant {
	return models.Tenant{
		ID:        id,
		CNPJ:      cnpj,
		Name:      name,
		Password:  "senha123",
		Email:     email,
		UserEmail: email,
		UserRole:  models.RoleClient,
		CreatedAt: time.Now().UTC(),
	}
}

var noSleep retry.SleepFunc = func(ctx context.Context, d time.Duration) error { return nil }
