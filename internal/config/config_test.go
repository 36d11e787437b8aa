package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_PORT", "")
	t.Setenv("EMBEDDING_DIMENSION", "")
	t.Setenv("QDRANT_COLLECTION", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "8000" {
		t.Fatalf("expected default API port 8000, got %q", cfg.APIPort)
	}
	if cfg.EmbeddingDimension != 384 {
		t.Fatalf("expected default embedding dimension 384, got %d", cfg.EmbeddingDimension)
	}
	if cfg.QdrantCollection != "textbook_chunks" {
		t.Fatalf("expected default collection textbook_chunks, got %q", cfg.QdrantCollection)
	}
	if cfg.NATSSubject != "sections.reindex" {
		t.Fatalf("expected default subject sections.reindex, got %q", cfg.NATSSubject)
	}
}

func TestLoadAppliesYAMLFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("api_port: \"9000\"\nqdrant_collection: custom_chunks\napi_rate_limit_rps: 5\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Fatalf("expected file port 9000, got %q", cfg.APIPort)
	}
	if cfg.QdrantCollection != "custom_chunks" {
		t.Fatalf("expected file collection, got %q", cfg.QdrantCollection)
	}
	if cfg.APIRateLimitRPS != 5 {
		t.Fatalf("expected file rate limit 5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected untouched default log level, got %q", cfg.LogLevel)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: \"9000\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "7777")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "7777" {
		t.Fatalf("expected env override 7777, got %q", cfg.APIPort)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}
