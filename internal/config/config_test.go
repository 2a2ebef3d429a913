package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Categories.TTL != "10m" || cfg.Auth.AdminUser != "admin" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
  publicURL: https://trivia.example
postgres:
  url: postgres://trivia@localhost/trivia
auth:
  disabled: true
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.PublicURL != "https://trivia.example" {
		t.Fatalf("server section not read: %+v", cfg.Server)
	}
	if cfg.Postgres.URL == "" || !cfg.Auth.Disabled {
		t.Fatalf("expected postgres url and disabled auth, got %+v", cfg)
	}
	if cfg.Sync.RefreshInterval != "30s" {
		t.Fatalf("expected default refresh interval to survive, got %q", cfg.Sync.RefreshInterval)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"redis.addr":    "localhost:6379",
		"redis.db":      "2",
		"auth.disabled": "true",
		"auth.secret":   "s3cret",
	}
	err := cfg.Apply(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 || !cfg.Auth.Disabled || cfg.Auth.Secret != "s3cret" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	bad := Default()
	if err := bad.Apply(func(key string) (string, bool) { return "many", key == "redis.db" }); err == nil {
		t.Fatalf("expected invalid integer to fail")
	}
	if len(Keys()) != 15 {
		t.Fatalf("expected 15 keys, got %d", len(Keys()))
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
}
