//	@title			Minicloud API
//	@version		1.0
//	@description	Asset ingestion service: authenticated uploads, optional image optimization, CDN-backed remote storage, and a folder-organized metadata catalog.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token: an account API key or a JWT from /auth/login. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/minicloud/service/internal/asset"
	"github.com/minicloud/service/internal/auth"
	"github.com/minicloud/service/internal/catalog"
	"github.com/minicloud/service/internal/config"
	"github.com/minicloud/service/internal/folder"
	appMiddleware "github.com/minicloud/service/internal/middleware"
	"github.com/minicloud/service/internal/storage"
	"github.com/minicloud/service/internal/transform"

	_ "github.com/minicloud/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	store, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("catalog open failed: %v", err)
	}

	remote, err := newRemoteStorage(cfg)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatalf("create staging dir failed: %v", err)
	}

	// Wire dependencies: store → service → handler
	authSvc := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc)

	seedAdmin(store, authSvc, cfg)

	optimizer := transform.NewOptimizer(cfg.TempDir)
	assetSvc := asset.NewService(store, remote, optimizer, cfg.TempDir)
	assetHandler := asset.NewHandler(assetSvc, cfg.TempDir, cfg.MaxUploadBytes, cfg.MaxBulkFiles)

	folderSvc := folder.NewService(store)
	folderHandler := folder.NewHandler(folderSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/login", authHandler.Login)

		// Protected asset and folder endpoints
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(store, cfg.JWTSecret))
			r.Post("/upload", assetHandler.Upload)
			r.Post("/upload-bulk", assetHandler.UploadBulk)
			r.Get("/assets", folderHandler.ListChildren)
			r.Put("/assets/{id}", assetHandler.Rename)
			r.Delete("/assets/{id}", assetHandler.Delete)
			r.Post("/folders", folderHandler.Create)
			r.Delete("/folders/{id}", folderHandler.Delete)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Minute,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s, storage=%s)", cfg.Port, cfg.AppEnv, cfg.StorageDriver)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

// newRemoteStorage selects the remote store driver from configuration.
func newRemoteStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == "bunny" {
		return storage.NewBunnyStorage(cfg.BunnyHost, cfg.BunnyZone, cfg.BunnyAccessKey, cfg.CDNBaseURL), nil
	}
	return storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.CDNBaseURL,
		cfg.StorageUseSSL,
	)
}

// seedAdmin provisions the configured admin account into a brand-new
// catalog so a fresh deployment has one usable login.
func seedAdmin(store *catalog.Store, authSvc *auth.Service, cfg *config.Config) {
	if store.UserCount() > 0 || cfg.AdminCredential == "" {
		return
	}
	u, err := authSvc.Provision(cfg.AdminUsername, cfg.AdminCredential)
	if err != nil {
		log.Printf("seed admin account failed: %v", err)
		return
	}
	log.Printf("seeded admin account %q (api key: %s)", u.Username, u.APIKey)
}
