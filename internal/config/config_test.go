package config

import (
	"testing"
	"time"
)

func TestStorageDirFromStoragePath(t *testing.T) {
	t.Setenv("STORAGE_PATH", "/mnt/data")
	t.Setenv("STORAGE_DIR", "/ignored")

	Load()

	if Cfg.StorageDir != "/mnt/data" {
		t.Errorf("Expected /mnt/data, got %q", Cfg.StorageDir)
	}
}

func TestStorageDirLegacyName(t *testing.T) {
	t.Setenv("STORAGE_PATH", "")
	t.Setenv("STORAGE_DIR", "/mnt/legacy")

	Load()

	if Cfg.StorageDir != "/mnt/legacy" {
		t.Errorf("Expected /mnt/legacy, got %q", Cfg.StorageDir)
	}
}

func TestStorageDirDefaultsToWorkingDir(t *testing.T) {
	t.Setenv("STORAGE_PATH", "")
	t.Setenv("STORAGE_DIR", "")

	Load()

	if Cfg.StorageDir != "" {
		t.Errorf("Expected empty storage dir, got %q", Cfg.StorageDir)
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("QUOTE_CACHE_TTL", "")
	t.Setenv("CHECK_ENABLED", "")

	Load()

	if Cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", Cfg.Port)
	}
	if Cfg.QuoteCacheTTL != 15*time.Minute {
		t.Errorf("Expected 15m cache TTL, got %v", Cfg.QuoteCacheTTL)
	}
	if !Cfg.CheckEnabled {
		t.Error("Expected check enabled by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUOTE_CACHE_TTL", "1h")
	t.Setenv("CHECK_ENABLED", "false")
	t.Setenv("REDIS_DB", "3")

	Load()

	if Cfg.QuoteCacheTTL != time.Hour {
		t.Errorf("Expected 1h cache TTL, got %v", Cfg.QuoteCacheTTL)
	}
	if Cfg.CheckEnabled {
		t.Error("Expected check disabled")
	}
	if Cfg.RedisDB != 3 {
		t.Errorf("Expected redis db 3, got %d", Cfg.RedisDB)
	}
}
