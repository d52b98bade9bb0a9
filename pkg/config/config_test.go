package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeCreatesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	dir, err := Dir()
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Errorf("config.json not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "collections")); err != nil {
		t.Errorf("collections dir not created: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Theme != "dark" {
		t.Errorf("theme = %q, want dark", cfg.Theme)
	}
	if cfg.DefaultEnvironment != "dev" {
		t.Errorf("default environment = %q, want dev", cfg.DefaultEnvironment)
	}
	if cfg.CollectionsDir == "" {
		t.Error("collections dir empty")
	}

	// Second run must not fail or clobber anything.
	if err := Initialize(); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestHistoryPathInsideConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir, err := Dir()
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	path, err := HistoryPath()
	if err != nil {
		t.Fatalf("history path: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("history path %q not inside %q", path, dir)
	}
}
