package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Queue.Type != "memory" {
		t.Errorf("expected default queue memory, got %q", cfg.Queue.Type)
	}
	if cfg.Media.Driver != "local" {
		t.Errorf("expected default media driver local, got %q", cfg.Media.Driver)
	}
	if cfg.Auth.TokenTTLHours != 24 {
		t.Errorf("expected default token ttl 24, got %d", cfg.Auth.TokenTTLHours)
	}
	if cfg.Database.LogLevel != cfg.Log.Level {
		t.Errorf("expected database log level to follow log level %q, got %q", cfg.Log.Level, cfg.Database.LogLevel)
	}
}

func TestLoadFile_EnvOverride(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite\n  dsn: ./file.db\n")
	t.Setenv("NEWSDESK_DATABASE_DSN", "./env.db")
	t.Setenv("NEWSDESK_LOG_LEVEL", "debug")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.DSN != "./env.db" {
		t.Errorf("expected env DSN to win, got %q", cfg.Database.DSN)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Log.Level)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
