// Package config centralizes how SealDrop reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends accepted by SEALDROP_STORAGE.
const (
	StorageMemory = "memory"
	StorageDisk   = "disk"
	StorageS3     = "s3"
	StorageGCS    = "gcs"
)

// Config represents runtime configuration for the server, the worker and the
// CLI. Every field has a default so a bare environment starts a local,
// in-memory instance.
type Config struct {
	Environment string
	Address     string
	// BaseURL prefixes document ids in verification links. Empty means the
	// server derives it from each request.
	BaseURL     string
	MaxFileSize int64

	LinkSecret []byte
	LinkTTL    time.Duration

	PrivateKeyPEM  string
	PrivateKeyPath string
	PublicKeyPEM   string
	PublicKeyPath  string

	BrandMarkPath string
	PageTitle     string
	BindContent   bool

	Storage    string
	StorageDir string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3Bucket    string
	S3UseSSL    bool

	GCSBucket   string
	// GCSEndpoint points at an emulator; credentials are skipped when set.
	GCSEndpoint string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuditWorkers int
	AuditTimeout time.Duration
}

const (
	defaultEnvironment  = "development"
	defaultAddress      = ":8080"
	defaultMaxFileSize  = 25 << 20 // 25 MiB
	defaultLinkTTL      = 10 * time.Minute
	defaultStorage      = StorageDisk
	defaultStorageDir   = "storage"
	defaultS3Endpoint   = "localhost:9000"
	defaultS3Region     = "us-east-1"
	defaultS3Bucket     = "sealdrop"
	defaultAuditWorkers = 2
	defaultAuditTimeout = 30 * time.Second
)

// Load reads configuration from environment variables falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: readEnv("SEALDROP_ENV", defaultEnvironment),
		Address:     readEnv("SEALDROP_ADDRESS", defaultAddress),
		BaseURL:     readEnv("SEALDROP_BASE_URL", ""),
		MaxFileSize: parseInt64("SEALDROP_MAX_FILE_BYTES", defaultMaxFileSize),

		LinkSecret: parseSecret("SEALDROP_LINK_SECRET"),
		LinkTTL:    parseDuration("SEALDROP_LINK_TTL", defaultLinkTTL),

		PrivateKeyPEM:  readEnv("SEALDROP_PRIVATE_KEY_PEM", ""),
		PrivateKeyPath: readEnv("SEALDROP_PRIVATE_KEY", ""),
		PublicKeyPEM:   readEnv("SEALDROP_PUBLIC_KEY_PEM", ""),
		PublicKeyPath:  readEnv("SEALDROP_PUBLIC_KEY", ""),

		BrandMarkPath: readEnv("SEALDROP_BRAND_MARK", ""),
		PageTitle:     readEnv("SEALDROP_PAGE_TITLE", ""),
		BindContent:   parseBool("SEALDROP_BIND_CONTENT", false),

		Storage:    strings.ToLower(readEnv("SEALDROP_STORAGE", defaultStorage)),
		StorageDir: readEnv("SEALDROP_STORAGE_DIR", defaultStorageDir),

		S3Endpoint:  readEnv("SEALDROP_S3_ENDPOINT", defaultS3Endpoint),
		S3AccessKey: readEnv("SEALDROP_S3_ACCESS_KEY", ""),
		S3SecretKey: readEnv("SEALDROP_S3_SECRET_KEY", ""),
		S3Region:    readEnv("SEALDROP_S3_REGION", defaultS3Region),
		S3Bucket:    readEnv("SEALDROP_S3_BUCKET", defaultS3Bucket),
		S3UseSSL:    parseBool("SEALDROP_S3_USE_SSL", false),

		GCSBucket:   readEnv("SEALDROP_GCS_BUCKET", ""),
		GCSEndpoint: readEnv("SEALDROP_GCS_ENDPOINT", ""),

		DatabaseURL: readEnv("SEALDROP_DATABASE_URL", ""),

		RedisAddr:     readEnv("SEALDROP_REDIS_ADDR", ""),
		RedisPassword: readEnv("SEALDROP_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("SEALDROP_REDIS_DB", 0),

		AuditWorkers: parseInt("SEALDROP_AUDIT_WORKERS", defaultAuditWorkers),
		AuditTimeout: parseDuration("SEALDROP_AUDIT_TIMEOUT", defaultAuditTimeout),
	}
	if cfg.LinkSecret == nil {
		cfg.LinkSecret = randomSecret()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = defaultLinkTTL
	}
	if cfg.AuditWorkers <= 0 {
		cfg.AuditWorkers = defaultAuditWorkers
	}
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = defaultAuditTimeout
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory, StorageDisk, StorageS3:
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("config: SEALDROP_GCS_BUCKET is required for gcs storage")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage)
	}
	return nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
