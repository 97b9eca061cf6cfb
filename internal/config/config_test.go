package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ServerPort != "3003" {
		t.Errorf("Expected default port 3003, got %s", cfg.ServerPort)
	}
	if cfg.StorageBackend != "local" {
		t.Errorf("Expected default backend local, got %s", cfg.StorageBackend)
	}
	if cfg.MaxFilesPerRequest != 10 {
		t.Errorf("Expected max 10 files per request, got %d", cfg.MaxFilesPerRequest)
	}
	if cfg.MaxFileSize != 25*1024*1024 {
		t.Errorf("Expected 25 MiB file size cap, got %d", cfg.MaxFileSize)
	}
	if cfg.RetentionMaxAge != 0 {
		t.Errorf("Expected retention disabled by default, got %v", cfg.RetentionMaxAge)
	}
	if cfg.DeleteAfterDownload {
		t.Error("Expected delete-after-download off by default")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("Expected wildcard CORS origin, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("MINIO_BUCKET", "test-bucket")
	t.Setenv("MAX_FILES_PER_REQUEST", "3")
	t.Setenv("MAX_FILE_SIZE", "1024")
	t.Setenv("RETENTION_MAX_AGE", "24h")
	t.Setenv("RETENTION_INTERVAL", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := LoadConfig()

	if cfg.ServerPort != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.ServerPort)
	}
	if cfg.StorageBackend != "minio" {
		t.Errorf("Expected backend minio, got %s", cfg.StorageBackend)
	}
	if cfg.MinioBucket != "test-bucket" {
		t.Errorf("Expected bucket test-bucket, got %s", cfg.MinioBucket)
	}
	if cfg.MaxFilesPerRequest != 3 {
		t.Errorf("Expected max 3 files, got %d", cfg.MaxFilesPerRequest)
	}
	if cfg.MaxFileSize != 1024 {
		t.Errorf("Expected 1024 byte cap, got %d", cfg.MaxFileSize)
	}
	if cfg.RetentionMaxAge != 24*time.Hour {
		t.Errorf("Expected 24h retention, got %v", cfg.RetentionMaxAge)
	}
	if cfg.RetentionInterval != time.Hour {
		t.Errorf("Expected 1h interval, got %v", cfg.RetentionInterval)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != want[0] || cfg.CORSAllowedOrigins[1] != want[1] {
		t.Errorf("Expected origins %v, got %v", want, cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_FILES_PER_REQUEST", "not-a-number")
	t.Setenv("MAX_FILE_SIZE", "lots")
	t.Setenv("RETENTION_MAX_AGE", "soon")

	cfg := LoadConfig()

	if cfg.MaxFilesPerRequest != 10 {
		t.Errorf("Expected fallback to 10, got %d", cfg.MaxFilesPerRequest)
	}
	if cfg.MaxFileSize != 25*1024*1024 {
		t.Errorf("Expected fallback to 25 MiB, got %d", cfg.MaxFileSize)
	}
	if cfg.RetentionMaxAge != 0 {
		t.Errorf("Expected fallback to disabled retention, got %v", cfg.RetentionMaxAge)
	}
}
