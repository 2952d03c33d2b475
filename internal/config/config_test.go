package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaultConfig_PassesValidation(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate cleanly: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Errorf("http address = %q, want :8080", cfg.HTTP.Address)
	}
	if cfg.Quota.DefaultBytes != 5<<30 {
		t.Errorf("quota default = %d, want 5 GiB", cfg.Quota.DefaultBytes)
	}
}

func TestApplyDefaults_DoesNotOverwriteExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "postgres://example"
	ApplyDefaults(cfg)
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want the explicitly set postgres", cfg.Database.Driver)
	}
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	if err := Validate(cfg); err == nil {
		t.Error("expected validation to reject an unrecognized log level")
	}
}

func TestValidate_RejectsZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected validation to require a positive shutdown timeout")
	}
}

func TestLoad_NoFileStillAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want the default sqlite", cfg.Database.Driver)
	}
}

func TestLoad_FileValuesOverrideDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "database:\n  driver: sqlite\n  dsn: custom.db\nhttp:\n  address: \":9999\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.DSN != "custom.db" {
		t.Errorf("dsn = %q, want custom.db", cfg.Database.DSN)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Errorf("address = %q, want :9999", cfg.HTTP.Address)
	}
}

func TestGetDefaultConfigPath_EndsInConfigYAML(t *testing.T) {
	path := GetDefaultConfigPath()
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("path = %q, want it to end in config.yaml", path)
	}
}
