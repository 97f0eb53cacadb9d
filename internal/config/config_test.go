package config

import (
	"os"
	"testing"
	"time"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it switches
// the working directory for the duration of the test and restores it after.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("expected memory store by default, got %s", cfg.Store.Driver)
	}
	if cfg.Security.ResetTokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h reset window, got %s", cfg.Security.ResetTokenTTL)
	}
	if cfg.Security.SessionTTL != 12*time.Hour {
		t.Fatalf("expected 12h sessions, got %s", cfg.Security.SessionTTL)
	}
	if !cfg.Seed.OnStart {
		t.Fatal("expected seeding on start by default")
	}
	if cfg.Notifications.Stream != "identity:notifications" {
		t.Fatalf("unexpected stream %s", cfg.Notifications.Stream)
	}
	if cfg.Notifications.MaxLen != 10000 {
		t.Fatalf("unexpected stream cap %d", cfg.Notifications.MaxLen)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CAMPUSBUS_STORE_DRIVER", "redis")
	t.Setenv("CAMPUSBUS_SECURITY_RESETTOKENTTL", "30m")
	t.Setenv("CAMPUSBUS_HTTP_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "redis" {
		t.Fatalf("expected redis driver override, got %s", cfg.Store.Driver)
	}
	if cfg.Security.ResetTokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m reset ttl, got %s", cfg.Security.ResetTokenTTL)
	}
	if cfg.HTTP.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.HTTP.Port)
	}
}

func TestLoadRejectsInvalidStore(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CAMPUSBUS_STORE_DRIVER", "localstorage")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown store driver to be rejected")
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CAMPUSBUS_STORE_DRIVER", "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing dsn to be rejected")
	}
}
