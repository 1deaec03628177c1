package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"extportal/internal/auth"
	"extportal/internal/blob"
	"extportal/internal/config"
	"extportal/internal/domain/models"
	"extportal/internal/handler"
	"extportal/internal/middleware"
	"extportal/internal/repository/postgres"
	"extportal/internal/repository/rediscache"
	"extportal/internal/service/portal"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	logger.Info("settings loaded", "admin_emails", len(settings.AdminEmails), "seed_tenants", len(settings.SeedTenants))

	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The cache is a fallback mirror; a dead Redis degrades, not kills.
		logger.Warn("redis unreachable, snapshot cache degraded", "addr", cfg.RedisAddr, "error", err)
	}

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	tenantRepo := postgres.NewTenantRepository(repoConfig)
	docRepo := postgres.NewDocumentRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	profileRepo := postgres.NewProfileRepository(repoConfig)
	snapshotCache := rediscache.NewSnapshotCache(redisClient, logger)

	// External services
	provider := auth.NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseKey)
	blobStore := blob.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket)

	// Core services
	provisioner := portal.NewProvisioner(portal.ProvisionerDeps{
		Provider: provider,
		Profiles: profileRepo,
		Logger:   logger,
	})
	registry := portal.NewRegistry(portal.RegistryDeps{
		Tenants:     tenantRepo,
		Documents:   docRepo,
		Cache:       snapshotCache,
		Provisioner: provisioner,
		Settings:    settings,
		Logger:      logger,
	})
	folders := portal.NewFolders(portal.FolderDeps{
		Registry:  registry,
		Folders:   folderRepo,
		Documents: docRepo,
		Logger:    logger,
	})
	documents := portal.NewDocuments(portal.DocumentDeps{
		Registry: registry,
		Metadata: docRepo,
		Folders:  folderRepo,
		Blobs:    blobStore,
		Logger:   logger,
	})
	resolver := portal.NewResolver(portal.ResolverDeps{
		Registry:    registry,
		Provider:    provider,
		AdminEmails: settings.AdminEmails,
		Logger:      logger,
	})

	// Warm the tenant list so the very first sessions resolve against
	// remote truth instead of an empty registry.
	if err := registry.Load(ctx, &models.Identity{Role: models.RoleAdmin}); err != nil {
		logger.Warn("initial tenant load failed", "error", err)
	}

	logger.Info("services initialized")

	// Handlers
	tenantHandler := handler.NewTenantHandler(registry, logger)
	folderHandler := handler.NewFolderHandler(folders, logger)
	documentHandler := handler.NewDocumentHandler(documents, logger)
	sessionHandler := handler.NewSessionHandler(provider, registry, settings.AdminEmails, cfg.ResetRedirect, logger)

	// Authenticated routes (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	tenantHandler.RegisterRoutes(mux)
	folderHandler.RegisterRoutes(mux)
	documentHandler.RegisterRoutes(mux)
	sessionHandler.RegisterRoutes(mux)

	// Public routes: health, login, password recovery
	public := http.NewServeMux()
	public.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	sessionHandler.RegisterPublicRoutes(public)

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	var apiHandler http.Handler = mux
	apiHandler = middleware.Auth(jwtVerifier, resolver, logger)(apiHandler)

	root := http.NewServeMux()
	root.Handle("/api/session", public)
	root.Handle("/api/session/register", public)
	root.Handle("/api/session/recover", public)
	root.Handle("/health", public)
	root.Handle("/", apiHandler)

	var rootHandler http.Handler = root
	rootHandler = middleware.Recovery(logger)(rootHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	rootHandler = corsHandler.Handler(rootHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // document downloads can be slow
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
