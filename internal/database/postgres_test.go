package database

import (
	"testing"
	"time"

	"campusbus/identity/internal/config"
)

func TestPoolConfig(t *testing.T) {
	t.Parallel()

	cfg, err := PoolConfig(config.PostgresConfig{
		DSN:              "postgres://identity:secret@db:5432/campusbus?sslmode=disable",
		MaxOpen:          8,
		MaxIdle:          2,
		ConnMaxLifetime:  time.Minute,
		StatementTimeout: 1500 * time.Millisecond,
		ApplicationName:  "campusbus-identity",
	})
	if err != nil {
		t.Fatalf("PoolConfig: %v", err)
	}

	if cfg.MaxConns != 8 || cfg.MinConns != 2 || cfg.MaxConnLifetime != time.Minute {
		t.Fatalf("pool limits not applied: max=%d min=%d life=%s", cfg.MaxConns, cfg.MinConns, cfg.MaxConnLifetime)
	}
	params := cfg.ConnConfig.RuntimeParams
	if params["statement_timeout"] != "1500" {
		t.Fatalf("unexpected statement_timeout %q", params["statement_timeout"])
	}
	if params["application_name"] != "campusbus-identity" {
		t.Fatalf("unexpected application_name %q", params["application_name"])
	}
}

func TestPoolConfigKeepsDSNDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := PoolConfig(config.PostgresConfig{
		DSN:     "postgres://identity@db:5432/campusbus?pool_max_conns=3",
		MaxIdle: 5,
	})
	if err != nil {
		t.Fatalf("PoolConfig: %v", err)
	}
	if cfg.MaxConns != 3 {
		t.Fatalf("dsn pool size overridden, got %d", cfg.MaxConns)
	}
	if cfg.MinConns != 0 {
		t.Fatalf("min conns above max should be ignored, got %d", cfg.MinConns)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["statement_timeout"]; ok {
		t.Fatal("statement_timeout set without a configured value")
	}
}

func TestPoolConfigRejectsBadDSN(t *testing.T) {
	t.Parallel()

	if _, err := PoolConfig(config.PostgresConfig{DSN: "postgres://%zz"}); err == nil {
		t.Fatal("expected parse error")
	}
}
