// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct. An optional dotenv file is loaded first with 'joho/godotenv' so local
development does not require exporting every variable by hand.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token issuer) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// AuthConfig holds the token secrets and lifetimes of one principal kind.
// Lifetimes are expressed in seconds.
type AuthConfig struct {
	AccessTokenSecret    string `env:"ACCESS_TOKEN_SECRET,required"`
	AccessTokenLifetime  int    `env:"ACCESS_TOKEN_LIFETIME"  envDefault:"900"`
	RefreshTokenSecret   string `env:"REFRESH_TOKEN_SECRET,required"`
	RefreshTokenLifetime int    `env:"REFRESH_TOKEN_LIFETIME" envDefault:"2592000"`
}

// AccessTTL returns the access-token lifetime as a duration.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenLifetime) * time.Second
}

// RefreshTTL returns the refresh-token (and session) lifetime as a duration.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenLifetime) * time.Second
}

// Validate rejects secrets and lifetimes that would make tokens unsafe or unusable.
func (a AuthConfig) Validate(kind string) error {
	if a.AccessTokenSecret == "" || a.RefreshTokenSecret == "" {
		return fmt.Errorf("config: %s token secrets must not be empty", kind)
	}
	if a.AccessTokenSecret == a.RefreshTokenSecret {
		return fmt.Errorf("config: %s access and refresh secrets must differ", kind)
	}
	if a.AccessTokenLifetime <= 0 || a.RefreshTokenLifetime <= 0 {
		return fmt.Errorf("config: %s token lifetimes must be positive", kind)
	}
	return nil
}

// Config holds all runtime configuration for the Stella API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token secrets and lifetimes per principal kind
	AdminAuth AuthConfig `envPrefix:"ADMIN_"`
	UserAuth  AuthConfig `envPrefix:"USER_"`

	// UserSessionCacheTTL bounds how long a logged-out end-user session may
	// still be accepted by the access guard.
	UserSessionCacheTTL time.Duration `env:"USER_SESSION_CACHE_TTL" envDefault:"30m"`

	// Social login
	AdminSocialProviders []string `env:"ADMIN_SOCIAL_PROVIDERS" envDefault:"google" envSeparator:","`
	UserSocialProviders  []string `env:"USER_SOCIAL_PROVIDERS"  envDefault:"google" envSeparator:","`
	GoogleUserInfoURL    string   `env:"GOOGLE_USERINFO_URL"    envDefault:"https://www.googleapis.com/oauth2/v1/userinfo?alt=json"`
	OIDCIssuerURL        string   `env:"OIDC_ISSUER_URL"`

	// Message broker for session lifecycle events (disabled when empty)
	AMQPURL          string `env:"AMQP_URL"`
	AMQPSessionQueue string `env:"AMQP_SESSION_QUEUE" envDefault:"auth.session.events"`

	// Cross-Origin Resource Sharing
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"stella.app"`
}

// # Configuration Loading

// Load reads the optional dotenv file named by ENV_FILE (default ".env") and
// parses environment variables into a validated [Config].
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	// A missing dotenv file is normal outside local development.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read %s: %w", envFile, err)
	}

	return Parse()
}

// Parse maps the current process environment into a validated [Config].
func Parse() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field invariants that struct tags cannot express.
func (c *Config) Validate() error {
	if err := c.AdminAuth.Validate("admin"); err != nil {
		return err
	}
	if err := c.UserAuth.Validate("user"); err != nil {
		return err
	}
	if c.UserSessionCacheTTL <= 0 {
		return errors.New("config: USER_SESSION_CACHE_TTL must be positive")
	}
	return nil
}

// CacheOutlivesAccessToken reports whether the end-user cache TTL is longer
// than the user access-token lifetime, which widens the logout staleness window.
func (c *Config) CacheOutlivesAccessToken() bool {
	return c.UserSessionCacheTTL >= c.UserAuth.AccessTTL()
}

// AllowsOrigin reports whether a browser origin belongs to the configured
// domain or one of its subdomains.
func (c *Config) AllowsOrigin(origin string) bool {
	if c.AllowedOriginSuffix == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return false
	}

	host := parsed.Hostname()
	return host == c.AllowedOriginSuffix || strings.HasSuffix(host, "."+c.AllowedOriginSuffix)
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
