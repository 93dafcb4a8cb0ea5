package config

import (
	"testing"
)

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Driver: "redis",
			Addrs:  []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver: "redis",
			Addrs:  []string{},
		},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_ChromemNeedsNoAddrs(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "chromem"},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "postgres"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidate_DefaultLimitAboveMax(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "chromem"},
		Storage:  StorageConfig{DefaultLimit: 200, MaxLimit: 100},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when default_limit exceeds max_limit")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Storage.KeyPrefix != "quotemuse:" {
		t.Errorf("expected KeyPrefix='quotemuse:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Storage.Collection != "quotes" {
		t.Errorf("expected Collection='quotes', got %q", cfg.Storage.Collection)
	}
	if cfg.Storage.BatchSize != 50 {
		t.Errorf("expected BatchSize=50, got %d", cfg.Storage.BatchSize)
	}
	if cfg.Storage.DefaultLimit != 5 {
		t.Errorf("expected DefaultLimit=5, got %d", cfg.Storage.DefaultLimit)
	}
	if cfg.Storage.MaxLimit != 100 {
		t.Errorf("expected MaxLimit=100, got %d", cfg.Storage.MaxLimit)
	}
	if cfg.Storage.TagDelimiter != ";" {
		t.Errorf("expected TagDelimiter=';', got %q", cfg.Storage.TagDelimiter)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Generation.Temperature != 0.7 {
		t.Errorf("expected Temperature=0.7, got %v", cfg.Generation.Temperature)
	}
	if cfg.Generation.MaxOutputTokens != 320 {
		t.Errorf("expected MaxOutputTokens=320, got %d", cfg.Generation.MaxOutputTokens)
	}
	if cfg.Generation.DefaultQuotes != 2 {
		t.Errorf("expected DefaultQuotes=2, got %d", cfg.Generation.DefaultQuotes)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: "chromem", ReadinessTimeout: 15},
		Storage:  StorageConfig{KeyPrefix: "custom:", Collection: "sayings", BatchSize: 10, DefaultLimit: 3, MaxLimit: 50},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "chromem" {
		t.Errorf("expected Driver=chromem, got %q", cfg.Database.Driver)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Storage.Collection != "sayings" {
		t.Errorf("expected Collection='sayings', got %q", cfg.Storage.Collection)
	}
	if cfg.Storage.BatchSize != 10 {
		t.Errorf("expected BatchSize=10, got %d", cfg.Storage.BatchSize)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("QM_TEST_KEY", "secret")

	in := []byte("api_key: ${QM_TEST_KEY}\nmodel: ${QM_TEST_MODEL:-gpt-4o-mini}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nmodel: gpt-4o-mini\n"
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}
