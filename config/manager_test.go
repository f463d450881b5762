package config

import "testing"

func TestLoadWithAliasEnv(t *testing.T) {
	t.Setenv("APP_CONFIG", "config/does-not-exist.yaml")
	t.Setenv("TIO_DB_DRIVER", "postgres")
	t.Setenv("TIO_DB_URL", "postgres://localhost/tio")
	t.Setenv("TIO_LISTEN_ADDR", "127.0.0.1:8080")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "dev")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PEPPER", "pepper")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9090" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected JWT_SECRET alias to apply, got %q", cfg.JWTSecret)
	}
	if cfg.AppEnv != "dev" {
		t.Fatalf("expected ENV alias to apply, got %q", cfg.AppEnv)
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("expected default db_max_conns, got %d", cfg.DBMaxConns)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("APP_CONFIG", "config/does-not-exist.yaml")
	t.Setenv("TIO_DB_URL", "postgres://localhost/tio")
	t.Setenv("TIO_JWT_SECRET", "")
	t.Setenv("TIO_PEPPER", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected load failure without secrets")
	}
}
