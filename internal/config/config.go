// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port      string
	AppEnv    string
	JWTSecret string

	// Metadata catalog snapshot file and local upload staging directory.
	CatalogPath string
	TempDir     string

	// Remote object storage. Driver "s3" talks to any S3-compatible endpoint
	// (MinIO locally, ArvanCloud in production); driver "bunny" talks to
	// Bunny Storage's HTTP API directly.
	StorageDriver string

	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	BunnyHost      string
	BunnyZone      string
	BunnyAccessKey string

	// Browser-accessible base URL the CDN serves objects from,
	// e.g. "https://mini-cloudinary.b-cdn.net".
	CDNBaseURL string

	// Seed account written into a brand-new catalog on first start.
	AdminUsername   string
	AdminCredential string

	MaxUploadBytes int64
	MaxBulkFiles   int
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		AppEnv:    getEnv("APP_ENV", "development"),
		JWTSecret: getEnv("JWT_SECRET", "change_me_in_production"),

		CatalogPath: getEnv("CATALOG_PATH", "data/catalog.json"),
		TempDir:     getEnv("TEMP_DIR", "temp_uploads"),

		StorageDriver: getEnv("STORAGE_DRIVER", "s3"),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "mini-cloudinary"),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",

		BunnyHost:      getEnv("BUNNY_STORAGE_HOST", "storage.bunnycdn.com"),
		BunnyZone:      getEnv("BUNNY_STORAGE_ZONE_NAME", "mini-cloudinary"),
		BunnyAccessKey: getEnv("BUNNY_STORAGE_API_KEY", ""),

		CDNBaseURL: getEnv("CDN_BASE_URL", "http://localhost:9000/mini-cloudinary"),

		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminCredential: getEnv("ADMIN_CREDENTIAL", ""),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 50<<20),
		MaxBulkFiles:   int(getEnvInt64("MAX_BULK_FILES", 20)),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
