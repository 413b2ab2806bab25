package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "termgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Auth.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Auth.MaxAttempts)
	}
	if cfg.Auth.MinPasswordLength != 8 {
		t.Errorf("MinPasswordLength = %d, want 8", cfg.Auth.MinPasswordLength)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
auth:
  max_attempts: 5
storage:
  data_dir: /var/lib/termgate
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Auth.MaxAttempts)
	}
	// Unset fields keep their defaults.
	if cfg.Auth.MinPasswordLength != 8 {
		t.Errorf("MinPasswordLength = %d, want default 8", cfg.Auth.MinPasswordLength)
	}
	if cfg.Storage.DataDir != "/var/lib/termgate" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TERMGATE_TEST_DIR", "/srv/gate")
	path := writeConfig(t, `
storage:
  data_dir: ${TERMGATE_TEST_DIR}/data
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DataDir != "/srv/gate/data" {
		t.Errorf("DataDir = %q, want /srv/gate/data", cfg.Storage.DataDir)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "auth: [not: a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadClampsMaxAttempts(t *testing.T) {
	path := writeConfig(t, `
auth:
  max_attempts: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want fallback 3", cfg.Auth.MaxAttempts)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
