// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Storage backends selectable via STORAGE_BACKEND.
const (
	StorageBackendFS    = "fs"
	StorageBackendS3    = "s3"
	StorageBackendGCS   = "gcs"
	StorageBackendAzure = "azure"
)

// AuthConfig holds authentication and identity provider configuration.
type AuthConfig struct {
	IssuerURL       string        // OIDC issuer URL
	JWKSURL         string        // Override JWKS URL (if no .well-known discovery)
	JWTSecret       string        // HS256 shared secret for local/dev JWT auth
	Audience        string        // Required JWT audience claim
	AllowedIssuers  []string // Accepted issuers (defaults to [IssuerURL])
	AllowedSubjects []string // Subject allowlist; empty means any verified subject
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Config holds the configuration for the statement worker: the job ledger,
// the query engine, result storage, and the HTTP surface.
type Config struct {
	LedgerDBPath string // path to the SQLite job ledger file
	ListenAddr   string // HTTP listen address (default ":8080")
	LogLevel     string // log level: debug, info, warn, error (default "info")
	Env          string // environment: "development" (default) or "production"

	// Result materialization.
	ResultsBucket       string // bucket / container / directory for result parts
	FlushThresholdBytes int64  // accumulator flush threshold (default 256 MiB)
	EngineBatchRows     int64  // rows per engine batch (default 10000)
	MaxConcurrentJobs   int64  // background execution cap (default 4)

	// Object storage. StorageBackend selects one of fs|s3|gcs|azure.
	StorageBackend string
	FSRoot         string // root directory for the fs backend

	// S3-compatible storage. Fields are optional — nil when not configured.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string

	// GCS storage.
	GCSKeyFile string // service account key file path

	// Azure Blob storage.
	AzureAccountName string
	AzureAccountKey  string

	// Rate limiting.
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS.
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Auth holds identity provider and authentication configuration.
	Auth AuthConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the worker is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasS3Config returns true if all required S3 fields are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != nil && c.S3Secret != nil &&
		c.S3Endpoint != nil && c.S3Region != nil
}

// LoadFromEnv loads configuration from environment variables.
// Storage credentials are optional — the worker can start with the
// filesystem backend and no cloud credentials.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LedgerDBPath:     os.Getenv("LEDGER_DB_PATH"),
		ListenAddr:       os.Getenv("LISTEN_ADDR"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Env:              os.Getenv("ENV"),
		ResultsBucket:    os.Getenv("RESULTS_BUCKET"),
		StorageBackend:   strings.ToLower(os.Getenv("STORAGE_BACKEND")),
		FSRoot:           os.Getenv("FS_ROOT"),
		GCSKeyFile:       os.Getenv("GCS_KEY_FILE"),
		AzureAccountName: os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:  os.Getenv("AZURE_ACCOUNT_KEY"),
	}

	// S3 fields are optional — only set if present.
	if v := os.Getenv("S3_KEY_ID"); v != "" {
		cfg.S3KeyID = &v
	}
	if v := os.Getenv("S3_SECRET"); v != "" {
		cfg.S3Secret = &v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.S3Endpoint = &v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.S3Region = &v
	}

	if v := os.Getenv("FLUSH_THRESHOLD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid FLUSH_THRESHOLD_BYTES %q", v)
		}
		cfg.FlushThresholdBytes = n
	}
	if v := os.Getenv("ENGINE_BATCH_ROWS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid ENGINE_BATCH_ROWS %q", v)
		}
		cfg.EngineBatchRows = n
	}
	if v := os.Getenv("MAX_CONCURRENT_JOBS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_CONCURRENT_JOBS %q", v)
		}
		cfg.MaxConcurrentJobs = n
	}

	// Rate limiting.
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS.
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Auth config.
	cfg.Auth = AuthConfig{
		IssuerURL: os.Getenv("AUTH_ISSUER_URL"),
		JWKSURL:   os.Getenv("AUTH_JWKS_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Audience:  os.Getenv("AUTH_AUDIENCE"),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = splitTrimmed(v)
	}
	if v := os.Getenv("AUTH_ALLOWED_SUBJECTS"); v != "" {
		cfg.Auth.AllowedSubjects = splitTrimmed(v)
	}

	// Defaults.
	if cfg.LedgerDBPath == "" {
		cfg.LedgerDBPath = "statement_ledger.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ResultsBucket == "" {
		cfg.ResultsBucket = "statement-results"
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = StorageBackendFS
	}
	if cfg.FSRoot == "" {
		cfg.FSRoot = "results"
	}
	if cfg.FlushThresholdBytes == 0 {
		cfg.FlushThresholdBytes = 256 << 20
	}
	if cfg.EngineBatchRows == 0 {
		cfg.EngineBatchRows = 10_000
	}
	if cfg.MaxConcurrentJobs == 0 {
		cfg.MaxConcurrentJobs = 4
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	// No auth default: an empty auth config means open endpoints. Warn in
	// development; production mode rejects it below.
	if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "no auth configured — statement endpoints are open (set JWT_SECRET, AUTH_ISSUER_URL, or AUTH_JWKS_URL)")
	}

	switch cfg.StorageBackend {
	case StorageBackendFS, StorageBackendS3, StorageBackendGCS, StorageBackendAzure:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: must be one of fs, s3, gcs, azure", cfg.StorageBackend)
	}
	if cfg.StorageBackend == StorageBackendS3 && !cfg.HasS3Config() {
		return nil, fmt.Errorf("STORAGE_BACKEND=s3 requires S3_KEY_ID, S3_SECRET, S3_ENDPOINT, and S3_REGION")
	}
	if cfg.StorageBackend == StorageBackendGCS && cfg.GCSKeyFile == "" {
		return nil, fmt.Errorf("STORAGE_BACKEND=gcs requires GCS_KEY_FILE")
	}
	if cfg.StorageBackend == StorageBackendAzure && (cfg.AzureAccountName == "" || cfg.AzureAccountKey == "") {
		return nil, fmt.Errorf("STORAGE_BACKEND=azure requires AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("auth must be configured in production (set AUTH_ISSUER_URL, AUTH_JWKS_URL, or JWT_SECRET)")
		}
		if cfg.StorageBackend == StorageBackendFS {
			return nil, fmt.Errorf("STORAGE_BACKEND=fs is not allowed in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func splitTrimmed(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
