// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
// It is built once at startup and passed by reference into every component
// constructor; nothing reads the environment after Load returns.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the session cache URL (e.g. redis://localhost:6379/0).
	RedisURL string `mapstructure:"REDIS_URL"`

	// AccessPrivateKey is the PEM-encoded private key (RSA or ECDSA) or a file path; signs access tokens.
	AccessPrivateKey string `mapstructure:"JWT_ACCESS_PRIVATE_KEY"`
	// AccessPublicKey is the PEM-encoded public key or a file path; verifies access tokens.
	AccessPublicKey string `mapstructure:"JWT_ACCESS_PUBLIC_KEY"`
	// RefreshPrivateKey signs refresh tokens. Kept distinct from the access key
	// so neither token class verifies against the other's key.
	RefreshPrivateKey string `mapstructure:"JWT_REFRESH_PRIVATE_KEY"`
	// RefreshPublicKey verifies refresh tokens.
	RefreshPublicKey string `mapstructure:"JWT_REFRESH_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "testhub-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "testhub-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime and the session TTL (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`

	// Argon2Memory is the argon2id memory parameter in KiB; default 65536 (64 MiB).
	Argon2Memory uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	// Argon2Iterations is the argon2id time parameter; default 3.
	Argon2Iterations uint32 `mapstructure:"ARGON2_ITERATIONS"`
	// Argon2Parallelism is the argon2id lanes parameter; default 2.
	Argon2Parallelism uint8 `mapstructure:"ARGON2_PARALLELISM"`

	// DefaultRoleID is linked to every new registration; 0 means new users
	// start with no role and an admin assigns one later.
	DefaultRoleID int64 `mapstructure:"DEFAULT_ROLE_ID"`
	// DefaultProjectID scopes the default role link.
	DefaultProjectID int64 `mapstructure:"DEFAULT_PROJECT_ID"`

	// RequestTimeout bounds worst-case request latency (e.g. "30s"). Requests
	// past the deadline are aborted and reported as server errors, not retried.
	RequestTimeout string `mapstructure:"REQUEST_TIMEOUT"`
	// LogLevel is the zap level: debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("JWT_ISSUER", "testhub-auth")
	v.SetDefault("JWT_AUDIENCE", "testhub-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("ARGON2_MEMORY_KIB", 65536)
	v.SetDefault("ARGON2_ITERATIONS", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("DEFAULT_ROLE_ID", 0)
	v.SetDefault("DEFAULT_PROJECT_ID", 0)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("config: REDIS_URL must be set")
	}
	if cfg.Argon2Memory == 0 || cfg.Argon2Iterations == 0 || cfg.Argon2Parallelism == 0 {
		return nil, errors.New("config: argon2 parameters must be non-zero")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
// This is also the session TTL: a session record lives exactly as long as the
// refresh token minted with it.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// Timeout parses RequestTimeout. Returns 30s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
