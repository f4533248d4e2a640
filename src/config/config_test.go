package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoadConfigValid tests loading a valid configuration file.
//
// Rationale: This is the happy path test that ensures the basic configuration loading
// functionality works correctly with a well-formed config file.
func TestLoadConfigValid(t *testing.T) {
	validConfig := `
log_dir: ../logs
log_level: debug
top_n: 10
tiers: 3
keyword_filter_file: ignore.txt
store:
  type: redis
  redis_addr: cache:6379
  redis_db: 2
  key_prefix: "dash:"
  ttl_seconds: 3600
mq:
  host: rabbit
  port: 5673
  queue: exports
  result_queue: views
watch:
  dir: /data/exports
  debounce_ms: 250
`

	tmpFile := createTempConfigFile(t, validConfig)
	defer os.Remove(tmpFile.Name())

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Expected no error loading valid config, got: %v", err)
	}

	if cfg.LogDir != "../logs" {
		t.Errorf("Expected LogDir to be '../logs', got '%s'", cfg.LogDir)
	}
	if cfg.TopN != 10 {
		t.Errorf("Expected TopN to be 10, got %d", cfg.TopN)
	}
	if cfg.Tiers != 3 {
		t.Errorf("Expected Tiers to be 3, got %d", cfg.Tiers)
	}
	if cfg.Store.Type != StoreRedis || cfg.Store.RedisAddr != "cache:6379" || cfg.Store.RedisDB != 2 {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if cfg.Store.TTL() != time.Hour {
		t.Errorf("Expected TTL of 1h, got %v", cfg.Store.TTL())
	}
	if cfg.MQ.Host != "rabbit" || cfg.MQ.Port != 5673 || cfg.MQ.ResultQueue != "views" {
		t.Errorf("Unexpected mq config: %+v", cfg.MQ)
	}
	// Unset keys keep their defaults
	if cfg.MQ.Username != "guest" {
		t.Errorf("Expected default MQ username 'guest', got '%s'", cfg.MQ.Username)
	}
	if cfg.Watch.DebounceMs != 250 {
		t.Errorf("Expected DebounceMs to be 250, got %d", cfg.Watch.DebounceMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got: %v", err)
	}
}

// TestLoadConfigDefaults tests that an empty path yields a usable configuration.
//
// Rationale: The CLI must work out of the box without a config file.
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Store.Type != StoreDir || cfg.TopN != 5 || cfg.LogDir != "" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got: %v", err)
	}
}

// TestLoadConfigInvalidYAML tests that loading an invalid YAML file fails.
//
// Rationale: The system should gracefully handle malformed YAML files and provide
// meaningful error messages rather than crashing.
func TestLoadConfigInvalidYAML(t *testing.T) {
	invalidYAML := `
log_dir: ../logs
top_n: [1, 2, 3,  # Missing closing bracket
`

	tmpFile := createTempConfigFile(t, invalidYAML)
	defer os.Remove(tmpFile.Name())

	_, err := Load(tmpFile.Name())
	if err == nil {
		t.Fatal("Expected error loading invalid YAML, got nil")
	}
}

// TestLoadConfigNonexistentFile tests that loading a nonexistent file fails.
//
// Rationale: The system should handle missing config files gracefully and provide
// clear error messages to help with debugging.
func TestLoadConfigNonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error loading nonexistent file, got nil")
	}
}

// TestLoadConfigEnvOverrides tests that environment variables win over the file.
//
// Rationale: Deployments set secrets such as the redis password through the
// environment rather than the checked-in config.
func TestLoadConfigEnvOverrides(t *testing.T) {
	tmpFile := createTempConfigFile(t, "top_n: 3\nstore:\n  type: dir\n")
	defer os.Remove(tmpFile.Name())

	t.Setenv("SENTIMENT_TOP_N", "7")
	t.Setenv("SENTIMENT_STORE_TYPE", "memory")
	t.Setenv("SENTIMENT_REDIS_PASSWORD", "s3cret")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.TopN != 7 {
		t.Errorf("Expected TopN 7 from env, got %d", cfg.TopN)
	}
	if cfg.Store.Type != StoreMemory {
		t.Errorf("Expected store type memory from env, got %s", cfg.Store.Type)
	}
	if cfg.Store.RedisPassword != "s3cret" {
		t.Errorf("Expected redis password from env, got %q", cfg.Store.RedisPassword)
	}

	t.Setenv("SENTIMENT_MQ_PORT", "not-a-port")
	if _, err := Load(tmpFile.Name()); err == nil || !strings.Contains(err.Error(), "SENTIMENT_MQ_PORT") {
		t.Errorf("Expected error naming SENTIMENT_MQ_PORT, got %v", err)
	}
}

// TestValidate tests that invalid values are rejected.
//
// Rationale: Bad settings should fail at startup rather than halfway through an
// analysis.
func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"memory store", func(c *Config) { c.Store.Type = StoreMemory; c.Store.Dir = "" }, ""},
		{"negative top_n", func(c *Config) { c.TopN = -1 }, "top_n"},
		{"negative tiers", func(c *Config) { c.Tiers = -2 }, "tiers"},
		{"negative partitions", func(c *Config) { c.Partitions = -1 }, "partitions"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"unknown store", func(c *Config) { c.Store.Type = "s3" }, "unknown store type"},
		{"dir store without dir", func(c *Config) { c.Store.Dir = "" }, "store.dir"},
		{"redis without addr", func(c *Config) { c.Store.Type = StoreRedis; c.Store.RedisAddr = "" }, "redis_addr"},
		{"redis negative ttl", func(c *Config) { c.Store.Type = StoreRedis; c.Store.TTLSeconds = -5 }, "ttl_seconds"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closer, err := SetupLogger(dir, "warn")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("Failed to close log file: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "pipeline.log"))
	if err != nil {
		t.Fatalf("Expected log file, got: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown k=v") {
		t.Errorf("Unexpected log output: %s", out)
	}

	if _, _, err := SetupLogger("", "verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
	logger, closer, err = SetupLogger("", "debug")
	if err != nil || !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("Expected stderr debug logger, got err %v", err)
	}
	closer.Close()
}

// Helper function to create a temporary config file for testing
func createTempConfigFile(t *testing.T, content string) *os.File {
	tmpFile, err := os.CreateTemp("", "config_test_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	_, err = tmpFile.WriteString(content)
	if err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}

	err = tmpFile.Close()
	if err != nil {
		t.Fatalf("Failed to close temp file: %v", err)
	}

	return tmpFile
}
