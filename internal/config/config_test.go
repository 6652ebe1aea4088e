package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("S3_KEY_ID", "")
	t.Setenv("S3_SECRET", "")
	t.Setenv("S3_ENDPOINT", "")
	t.Setenv("S3_REGION", "")
	t.Setenv("LEDGER_DB_PATH", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "statement_ledger.sqlite", cfg.LedgerDBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StorageBackendFS, cfg.StorageBackend)
	assert.Equal(t, "statement-results", cfg.ResultsBucket)
	assert.Equal(t, int64(256<<20), cfg.FlushThresholdBytes)
	assert.Equal(t, int64(10_000), cfg.EngineBatchRows)
	assert.Equal(t, int64(4), cfg.MaxConcurrentJobs)
	assert.False(t, cfg.HasS3Config())

	// No auth secret is invented for development; the worker warns instead.
	assert.Empty(t, cfg.Auth.JWTSecret)
	require.NotEmpty(t, cfg.Warnings)
	assert.Contains(t, cfg.Warnings[0], "no auth configured")
}

func TestLoadFromEnv_SecretSuppressesAuthWarning(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("JWT_SECRET", "hunter2")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_ProductionRequiresAuth(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_ISSUER_URL", "")
	t.Setenv("AUTH_JWKS_URL", "")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("GCS_KEY_FILE", "key.json")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth must be configured")
}

func TestLoadFromEnv_S3Backend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_KEY_ID", "testkey")
	t.Setenv("S3_SECRET", "testsecret")
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("RESULTS_BUCKET", "my-results")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.HasS3Config())
	require.NotNil(t, cfg.S3KeyID)
	assert.Equal(t, "testkey", *cfg.S3KeyID)
	assert.Equal(t, "my-results", cfg.ResultsBucket)
}

func TestLoadFromEnv_S3BackendIncomplete(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_KEY_ID", "testkey")
	t.Setenv("S3_SECRET", "")
	t.Setenv("S3_ENDPOINT", "")
	t.Setenv("S3_REGION", "")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_InvalidBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "tape")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}

func TestLoadFromEnv_TuningKnobs(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("FLUSH_THRESHOLD_BYTES", "1048576")
	t.Setenv("ENGINE_BATCH_ROWS", "500")
	t.Setenv("MAX_CONCURRENT_JOBS", "2")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), cfg.FlushThresholdBytes)
	assert.Equal(t, int64(500), cfg.EngineBatchRows)
	assert.Equal(t, int64(2), cfg.MaxConcurrentJobs)
}

func TestLoadFromEnv_InvalidThreshold(t *testing.T) {
	t.Setenv("FLUSH_THRESHOLD_BYTES", "-1")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_ProductionRejectsFSBackend(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND=fs")
}

func TestLoadFromEnv_AllowedSubjects(t *testing.T) {
	t.Setenv("AUTH_ALLOWED_SUBJECTS", "alice, bob ,")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Auth.AllowedSubjects)
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	require.NoError(t, err)
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_DOTENV_KEY=\"quoted value\"\n# comment\n\nOTHER=1\n"), 0o644)
	require.NoError(t, err)

	t.Setenv("TEST_DOTENV_KEY", "")
	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "quoted value", os.Getenv("TEST_DOTENV_KEY"))
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
	cfg.LogLevel = "nonsense"
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
}
