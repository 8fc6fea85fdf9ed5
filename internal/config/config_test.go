package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quotaglass/quotaglass/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefreshSeconds != 60 {
		t.Errorf("refresh seconds: got %d want 60", cfg.RefreshSeconds)
	}
	if cfg.ContextLimitTokens != 200_000 {
		t.Errorf("context limit: got %d want 200000", cfg.ContextLimitTokens)
	}
	if cfg.Notifications.AlertPercent != 90 {
		t.Errorf("alert percent: got %v want 90", cfg.Notifications.AlertPercent)
	}
	if cfg.Webserver.Host != "127.0.0.1" {
		t.Errorf("host: got %q", cfg.Webserver.Host)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(`{"refreshSeconds":30,"webserver":{"enabled":true,"port":9090}}`), 0644)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefreshSeconds != 30 {
		t.Errorf("got %d want 30", cfg.RefreshSeconds)
	}
	if !cfg.Webserver.Enabled || cfg.Webserver.Port != 9090 {
		t.Errorf("webserver: got %+v", cfg.Webserver)
	}
	// Unset fields keep their defaults.
	if cfg.ContextLimitTokens != 200_000 {
		t.Errorf("context limit: got %d", cfg.ContextLimitTokens)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := config.Defaults()
	cfg.RefreshSeconds = 15
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.RefreshSeconds != 15 {
		t.Errorf("got %d want 15", got.RefreshSeconds)
	}
}

func TestEnsureJWTSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := config.Defaults()
	if err := config.EnsureJWTSecret(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Webserver.Auth.JWTSecret == "" {
		t.Fatal("expected a generated secret")
	}
	first := cfg.Webserver.Auth.JWTSecret

	// The secret persists and is not regenerated.
	loaded, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Webserver.Auth.JWTSecret != first {
		t.Error("secret not persisted")
	}
	if err := config.EnsureJWTSecret(path, &loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Webserver.Auth.JWTSecret != first {
		t.Error("secret regenerated unexpectedly")
	}
}
