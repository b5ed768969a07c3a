package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Cluster.K != 3 {
		t.Errorf("expected default k 3, got %d", cfg.Cluster.K)
	}
	if cfg.Cluster.MaxIterations != 100 {
		t.Errorf("expected default max_iterations 100, got %d", cfg.Cluster.MaxIterations)
	}
	if cfg.Mining.MinSupport != 0.1 {
		t.Errorf("expected default min_support 0.1, got %f", cfg.Mining.MinSupport)
	}
	if cfg.Mining.MinConfidence != 0.6 {
		t.Errorf("expected default min_confidence 0.6, got %f", cfg.Mining.MinConfidence)
	}
	if cfg.Mining.CoOccurrence != "synthetic" {
		t.Errorf("expected default cooccurrence synthetic, got %s", cfg.Mining.CoOccurrence)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("expected default cache ttl 10m, got %s", cfg.Cache.TTL)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 70000
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestValidate_InvalidSupport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mining.MinSupport = 1.5
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for min_support > 1")
	}

	cfg.Mining.MinSupport = -0.1
	err = Validate(cfg)
	if err == nil {
		t.Error("expected error for negative min_support")
	}
}

func TestValidate_InvalidInit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cluster.Init = "random-partition"
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for unsupported init mode")
	}

	cfg.Cluster.Init = "kmeans++"
	if err := Validate(cfg); err != nil {
		t.Errorf("kmeans++ should be valid: %v", err)
	}
}

func TestValidate_InvalidBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Backend = "elasticsearch"
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for unsupported backend")
	}
}

func TestValidate_TransactionsNeedFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mining.CoOccurrence = "transactions"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for transactions policy without a file")
	}
	if !strings.Contains(err.Error(), "mining.transactions_file") {
		t.Errorf("error should name mining.transactions_file: %v", err)
	}

	cfg.Mining.TransactionsFile = "baskets.jsonl"
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = -1
	cfg.Mining.MinConfidence = 5.0
	cfg.Logging.Level = "trace"
	cfg.Logging.MaxBackups = -1
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	for _, field := range []string{"server.port", "mining.min_confidence", "logging.level", "max_backups"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %s: %v", field, err)
		}
	}
}

func TestInterpolateEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hello"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
		{"${NONEXISTENT_VAR:-fallback}", "fallback"},
		{"${NONEXISTENT_VAR}", "${NONEXISTENT_VAR}"},
		{"no-vars-here", "no-vars-here"},
		{"${TEST_VAR:-default}", "hello"}, // env var exists, ignore default
	}

	for _, tt := range tests {
		result := InterpolateEnv(tt.input)
		if result != tt.expected {
			t.Errorf("InterpolateEnv(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "minelab.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return cfgPath
}

func TestLoadFromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  port: 9090
  host: 127.0.0.1

cluster:
  k: 5
  max_iterations: 20
  init: kmeans++
  seed: 7

mining:
  dataset: bookstore
  min_support: 0.2
  min_confidence: 0.5

source:
  backend: qdrant
  collection: points
  host: localhost:6334
  limit: 500
`)

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Cluster.K != 5 || cfg.Cluster.MaxIterations != 20 {
		t.Errorf("expected k=5 max_iterations=20, got k=%d max_iterations=%d", cfg.Cluster.K, cfg.Cluster.MaxIterations)
	}
	if cfg.Cluster.Init != "kmeans++" || cfg.Cluster.Seed != 7 {
		t.Errorf("expected kmeans++ seed 7, got %s seed %d", cfg.Cluster.Init, cfg.Cluster.Seed)
	}
	if cfg.Mining.Dataset != "bookstore" {
		t.Errorf("expected dataset bookstore, got %s", cfg.Mining.Dataset)
	}
	if cfg.Mining.MinSupport != 0.2 {
		t.Errorf("expected min_support 0.2, got %f", cfg.Mining.MinSupport)
	}
	if cfg.Source.Backend != "qdrant" {
		t.Errorf("expected backend qdrant, got %s", cfg.Source.Backend)
	}
	if cfg.Source.Collection != "points" {
		t.Errorf("expected collection points, got %s", cfg.Source.Collection)
	}
	if cfg.Source.Limit != 500 {
		t.Errorf("expected limit 500, got %d", cfg.Source.Limit)
	}
}

func TestLoadFromFile_WithEnvInterpolation(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")
	t.Setenv("TEST_DATA_DIR", "/var/lib/minelab")

	cfgPath := writeConfig(t, `
auth:
  api_keys:
    - ${TEST_API_KEY}
history:
  enabled: true
  path: ${TEST_DATA_DIR}
`)

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if len(cfg.Auth.APIKeys) != 1 {
		t.Fatalf("expected 1 API key, got %d", len(cfg.Auth.APIKeys))
	}
	if cfg.Auth.APIKeys[0] != "sk-test-123" {
		t.Errorf("expected interpolated API key, got %s", cfg.Auth.APIKeys[0])
	}
	if cfg.History.Path != "/var/lib/minelab" {
		t.Errorf("expected interpolated history path, got %s", cfg.History.Path)
	}
}

func TestLoadFromFile_InvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/minelab.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	cfgPath := writeConfig(t, "{{invalid yaml")

	_, err := LoadFromFile(cfgPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromFile_InvalidValues(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  port: 99999
mining:
  min_support: 5.0
`)

	_, err := LoadFromFile(cfgPath)
	if err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadFromFile_DefaultsPreserved(t *testing.T) {
	// Partial config should preserve defaults for unset fields
	cfgPath := writeConfig(t, `
server:
  port: 3000
`)

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Server.Port)
	}
	// Defaults should be preserved for unset fields
	if cfg.Mining.MinConfidence != 0.6 {
		t.Errorf("expected default min_confidence 0.6, got %f", cfg.Mining.MinConfidence)
	}
	if cfg.Cluster.Dataset != "blobs" {
		t.Errorf("expected default dataset blobs, got %s", cfg.Cluster.Dataset)
	}
}

func TestGenerateTemplate(t *testing.T) {
	tmpl := GenerateTemplate()

	// Verify key sections exist
	required := []string{
		"server:", "port:", "host:", "rate_limit:",
		"cluster:", "max_iterations:", "init:",
		"mining:", "min_support:", "min_confidence:", "cooccurrence:",
		"source:", "backend:", "collection:",
		"cache:", "history:", "logging:", "max_size_mb:",
		"auth:", "api_keys:",
	}

	for _, s := range required {
		if !strings.Contains(tmpl, s) {
			t.Errorf("template missing %q", s)
		}
	}
}

func TestGenerateTemplate_Loads(t *testing.T) {
	cfgPath := writeConfig(t, GenerateTemplate())

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("template should load cleanly: %v", err)
	}
	if cfg.Cluster.Init != "first-k" {
		t.Errorf("expected init first-k, got %s", cfg.Cluster.Init)
	}
	if cfg.Logging.File != "" || cfg.Logging.MaxSizeMB != 100 {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}
