// Command seed pushes the deterministic example tenants into the
// remote store and provisions their login credentials. It is meant for
// dev and test environments; running it twice is safe.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"extportal/internal/auth"
	"extportal/internal/config"
	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/services"
	"extportal/internal/repository/postgres"
	"extportal/internal/service/portal"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if cfg.Environment == "prod" {
		log.Fatal("refusing to seed a prod environment")
	}

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	tenantRepo := postgres.NewTenantRepository(repoConfig)
	profileRepo := postgres.NewProfileRepository(repoConfig)

	provider := auth.NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseKey)
	provisioner := portal.NewProvisioner(portal.ProvisionerDeps{
		Provider: provider,
		Profiles: profileRepo,
		Logger:   logger,
	})

	// Admin accounts first. The shared password comes from the
	// environment; when it is unset the allow-list is left alone.
	if adminPassword := os.Getenv("SEED_ADMIN_PASSWORD"); adminPassword != "" {
		role := string(models.RoleAdmin)
		for _, email := range settings.AdminEmails {
			_, err := provider.SignUp(email, adminPassword, auth.MetadataPatch{Role: &role})
			switch {
			case err == nil:
				logger.Info("admin account created", "email", email)
			case errors.Is(err, domain.ErrConflict):
				logger.Info("admin account already present", "email", email)
			default:
				log.Fatalf("Failed to create admin account %s: %v", email, err)
			}
		}
	} else {
		logger.Info("SEED_ADMIN_PASSWORD unset, skipping admin accounts")
	}

	for _, seed := range settings.SeedTenants {
		tenant := models.Tenant{
			ID:        seed.ID,
			CNPJ:      seed.CNPJ,
			Name:      seed.Name,
			Password:  seed.Password,
			UserRole:  models.RoleClient,
			CreatedAt: time.Now().UTC(),
		}
		if seed.Email != "" {
			email := seed.Email
			tenant.Email = &email
			tenant.UserEmail = &email
		}
		tenant.MaintenanceDate = seed.MaintenanceDate

		err := tenantRepo.Insert(ctx, &tenant)
		switch {
		case err == nil:
			logger.Info("tenant seeded", "id", tenant.ID, "name", tenant.Name)
		case errors.Is(err, domain.ErrConflict):
			logger.Info("tenant already present", "id", tenant.ID, "name", tenant.Name)
		default:
			log.Fatalf("Failed to seed tenant %s: %v", tenant.Name, err)
		}

		if !tenant.HasEmail() {
			continue
		}
		outcome, perr := provisioner.Provision(ctx, *tenant.Email, tenant.Password, services.CredentialLink{
			Name:     tenant.Name,
			CNPJ:     tenant.CNPJ,
			TenantID: tenant.ID,
		})
		if perr != nil {
			logger.Warn("credential provisioning failed", "email", *tenant.Email, "error", perr)
			continue
		}
		logger.Info("credential provisioned", "email", *tenant.Email, "outcome", string(outcome))
	}

	logger.Info("seeding complete", "tenants", len(settings.SeedTenants))
}
