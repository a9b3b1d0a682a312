package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/burhanit11/youtubechannel-backend/pkg/config"
)

const (
	defaultAccessSecret  = "change-this-access-token-secret"
	defaultRefreshSecret = "change-this-refresh-token-secret"
)

// Config holds all configuration for the service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8000"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"vidtube"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"vidtube_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"vidtube"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns   int32  `env:"POSTGRES_MAX_CONNS" envDefault:"25"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Media host used for avatar and cover image uploads.
	MediaBaseURL string `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8080"`

	// Token signing. The two secrets must be independent: access tokens are
	// short-lived and stateless, refresh tokens are long-lived and stateful.
	AccessTokenSecret  string `env:"ACCESS_TOKEN_SECRET" envDefault:"change-this-access-token-secret"`
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET" envDefault:"change-this-refresh-token-secret"`
	AccessTokenExpiry  string `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry string `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`

	// Observability
	OTELEnabled          bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint         string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate       float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	SlowQueryThresholdMs int     `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if _, err := time.ParseDuration(cfg.AccessTokenExpiry); err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRY: %w", err)
	}
	if _, err := time.ParseDuration(cfg.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRY: %w", err)
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	// In non-development environments, require explicitly set, strong secrets.
	if cfg.Environment != "development" {
		if cfg.AccessTokenSecret == defaultAccessSecret || cfg.RefreshTokenSecret == defaultRefreshSecret {
			return nil, fmt.Errorf("token secrets must be explicitly set via environment variables in %q mode", cfg.Environment)
		}
		if len(cfg.AccessTokenSecret) < 32 {
			return nil, fmt.Errorf("ACCESS_TOKEN_SECRET must be at least 32 characters long, got %d", len(cfg.AccessTokenSecret))
		}
		if len(cfg.RefreshTokenSecret) < 32 {
			return nil, fmt.Errorf("REFRESH_TOKEN_SECRET must be at least 32 characters long, got %d", len(cfg.RefreshTokenSecret))
		}
	}

	return cfg, nil
}

// AccessExpiry returns the parsed access token lifetime.
func (c *Config) AccessExpiry() time.Duration {
	d, _ := time.ParseDuration(c.AccessTokenExpiry)
	return d
}

// RefreshExpiry returns the parsed refresh token lifetime.
func (c *Config) RefreshExpiry() time.Duration {
	d, _ := time.ParseDuration(c.RefreshTokenExpiry)
	return d
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
