package config

import "time"

type AppConfig struct {
	DBDriver   string        `yaml:"db_driver" env:"TIO_DB_DRIVER"`
	DBURL      string        `yaml:"db_url" env:"TIO_DB_URL"`
	DBPath     string        `yaml:"db_path" env:"TIO_DB_PATH"`
	DBMaxConns int           `yaml:"db_max_conns" env:"TIO_DB_MAX_CONNS" env-default:"25"`
	ListenAddr string        `yaml:"listen_addr" env:"TIO_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	AppEnv     string        `yaml:"app_env" env:"TIO_APP_ENV" env-default:"production"`
	JWTSecret  string        `yaml:"jwt_secret" env:"TIO_JWT_SECRET"`
	Pepper     string        `yaml:"pepper" env:"TIO_PEPPER"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"TIO_ACCESS_TTL" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"TIO_REFRESH_TTL" env-default:"168h"`
	TLSEnabled bool          `yaml:"tls_enabled" env:"TIO_TLS_ENABLED"`
	TLSCert    string        `yaml:"tls_cert" env:"TIO_TLS_CERT"`
	TLSKey     string        `yaml:"tls_key" env:"TIO_TLS_KEY"`

	Security      SecurityConfig      `yaml:"security"`
	Observability ObservabilityConfig `yaml:"observability"`
	Housekeeping  HousekeepingConfig  `yaml:"housekeeping"`
}

func (c *AppConfig) IsDev() bool {
	if c == nil {
		return false
	}
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

type SecurityConfig struct {
	TrustedProxies []string `yaml:"trusted_proxies" env:"TIO_TRUSTED_PROXIES"`
	SecureCookies  bool     `yaml:"secure_cookies" env:"TIO_SECURE_COOKIES"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled" env:"TIO_METRICS_ENABLED" env-default:"true"`
	MetricsToken   string `yaml:"metrics_token" env:"TIO_METRICS_TOKEN"`
}

type HousekeepingConfig struct {
	Enabled bool `yaml:"enabled" env:"TIO_HOUSEKEEPING_ENABLED" env-default:"true"`
	// Cron expression for the expired-session sweep.
	Schedule string `yaml:"schedule" env:"TIO_HOUSEKEEPING_SCHEDULE" env-default:"@hourly"`
}
