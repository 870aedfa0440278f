package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() { _ = os.Chdir(cwd) }()

	opts, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.SchemaVersion != "latest" {
		t.Errorf("SchemaVersion = %q, want latest", opts.SchemaVersion)
	}
	if opts.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", opts.LogLevel)
	}
	if !opts.ShowWarnings {
		t.Error("expected ShowWarnings default true")
	}
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := "schema_version: \"2.0.0\"\nlog_level: debug\nshow_warnings: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.SchemaVersion != "2.0.0" {
		t.Errorf("SchemaVersion = %q, want 2.0.0", opts.SchemaVersion)
	}
	if opts.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", opts.LogLevel)
	}
	if opts.ShowWarnings {
		t.Error("expected ShowWarnings overridden to false")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("PSYCHDS_LOG_LEVEL", "warn")

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (env override)", opts.LogLevel)
	}
}

func TestLoadMissingExplicitFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
