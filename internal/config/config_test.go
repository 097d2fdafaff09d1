package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"SHEETS_BACKEND", "REDIS_URL", "CACHE_TTL_MS", "CACHE_MAX_ENTRIES", "MINIO_USE_SSL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Backend != "xlsx" || cfg.RedisURL != "" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.CacheTTL != 1500*time.Millisecond || cfg.CacheMaxEntries != 512 {
		t.Fatalf("cache defaults = %s / %d", cfg.CacheTTL, cfg.CacheMaxEntries)
	}
	if cfg.MinIOUseSSL || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("minio ssl = %v, level = %v", cfg.MinIOUseSSL, cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHEETS_BACKEND", "SQL")
	t.Setenv("CACHE_TTL_MS", "250")
	t.Setenv("CACHE_MAX_ENTRIES", "not-a-number")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Backend != "sql" || cfg.CacheTTL != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %#v", cfg)
	}
	if cfg.CacheMaxEntries != 512 {
		t.Fatalf("invalid integer should fall back, got %d", cfg.CacheMaxEntries)
	}
	if !cfg.MinIOUseSSL || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("minio ssl = %v, level = %v", cfg.MinIOUseSSL, cfg.LogLevel)
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.WriteFile(".env", []byte("XLSX_PATH=/tmp/evento.xlsx\nMINIO_BUCKET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv only fills variables that are unset, not merely empty.
	t.Setenv("XLSX_PATH", "")
	os.Unsetenv("XLSX_PATH")
	t.Setenv("MINIO_BUCKET", "from-env")

	cfg := Load()
	if cfg.XLSXPath != "/tmp/evento.xlsx" {
		t.Fatalf("XLSXPath = %q, want value from .env", cfg.XLSXPath)
	}
	if cfg.MinIOBucket != "from-env" {
		t.Fatalf("MinIOBucket = %q, environment must win over .env", cfg.MinIOBucket)
	}
}
