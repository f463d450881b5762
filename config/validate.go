package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultJWTSecret = "u1zFhP9cQ4jX7wK2mN8vB5tR3yL6sD0aG4eH1iJ9oP8"
	defaultPepper    = "BPY89KfAWweJM5p2Vh0Zwg_-nm7wSlS8La8DxPWFAlg"
)

func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "pg" {
		return fmt.Errorf("unsupported db_driver: %s", cfg.DBDriver)
	}
	if strings.TrimSpace(cfg.DBURL) == "" {
		return fmt.Errorf("db_url must be set for postgres driver")
	}
	secret := strings.TrimSpace(cfg.JWTSecret)
	pep := strings.TrimSpace(cfg.Pepper)
	if secret == "" || pep == "" {
		return fmt.Errorf("jwt_secret and pepper must be set via env")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return fmt.Errorf("access_ttl and refresh_ttl must be positive")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return fmt.Errorf("refresh_ttl must exceed access_ttl")
	}
	if cfg.AccessTTL > 24*time.Hour {
		return fmt.Errorf("access_ttl must not exceed 24h")
	}
	if !cfg.IsDev() {
		if isDefaultSecret(secret) || isDefaultSecret(pep) {
			return fmt.Errorf("default secrets are not allowed outside APP_ENV=dev")
		}
		if len(secret) < 32 {
			return fmt.Errorf("jwt_secret must be at least 32 characters outside APP_ENV=dev")
		}
	}
	return nil
}

func isDefaultSecret(val string) bool {
	switch val {
	case defaultJWTSecret, defaultPepper:
		return true
	default:
		return false
	}
}
