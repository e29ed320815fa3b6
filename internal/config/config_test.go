package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8000" {
		t.Errorf("ServerURL = %q, want default", cfg.ServerURL)
	}
	if cfg.RequestTimeoutSeconds != 30 {
		t.Errorf("RequestTimeoutSeconds = %d, want 30", cfg.RequestTimeoutSeconds)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.ServerURL = "https://tienda.example.com/"
	cfg.LogLevel = "debug"
	cfg.RequestTimeoutSeconds = 5
	cfg.DisableAnimations = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Trailing slash is normalized away on load.
	if loaded.ServerURL != "https://tienda.example.com" {
		t.Errorf("ServerURL = %q", loaded.ServerURL)
	}
	if loaded.LogLevel != "debug" || loaded.RequestTimeoutSeconds != 5 || !loaded.DisableAnimations {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for corrupt config")
	}
}

func TestDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("TIENDA_CONFIG_DIR", "/tmp/tienda-test-config")
	if got := Dir(); got != "/tmp/tienda-test-config" {
		t.Errorf("Dir() = %q", got)
	}
	if got := Path(); got != filepath.Join("/tmp/tienda-test-config", "config.json") {
		t.Errorf("Path() = %q", got)
	}
}
