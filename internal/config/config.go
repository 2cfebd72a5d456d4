// Package config manages environment variables.
//
// It reads variables from the `.env` file and the process environment,
// loads them into structured Go types and validates that required values
// are present so they can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide defaults for optional blocks (observability, reconciler).
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it is loaded into the
	// process env before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read with the RELAY_ prefix. The prefix is stripped, the rest
	is lowercased, and "." separates nested blocks:

		RELAY_SERVER.PORT            -> server.port            -> Config.Server.Port
		RELAY_RECONCILER.CONCURRENCY -> reconciler.concurrency -> Config.Reconciler.Concurrency
*/

// EnvPrefix is the prefix every relay variable carries.
const EnvPrefix = "RELAY_"

// ServiceName is the name reported to logs, traces and APM dashboards.
const ServiceName = "instrument-relay"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected by LoadConfig.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Reconciler    ReconcilerConfig     `koanf:"reconciler"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
// Used to tag logs/traces and to switch behavior (e.g. SQL tracing in "local").
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details.
// Address is "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// Supported auth providers.
const (
	AuthProviderClerk = "clerk"
	AuthProviderJWT   = "jwt"
)

// AuthConfig selects how admin callers are authenticated.
//
//   - provider "clerk": SecretKey is the Clerk backend key, sessions are
//     verified by the Clerk SDK and the role is read from session claims.
//   - provider "jwt": SecretKey is the HS256 signing secret and the role is
//     read from the token's "role" claim.
//
// AdminRole is the role value that may trigger a reconciliation.
type AuthConfig struct {
	Provider  string `koanf:"provider" validate:"omitempty,oneof=clerk jwt"`
	SecretKey string `koanf:"secret_key" validate:"required"`
	AdminRole string `koanf:"admin_role"`
}

// IntegrationConfig holds third-party API credentials.
type IntegrationConfig struct {
	// ResendAPIKey is used by the email client. Empty disables email alerts.
	ResendAPIKey string `koanf:"resend_api_key"`

	// EmailFrom is the sender of alert emails, "Name <address>".
	EmailFrom string `koanf:"email_from"`
}

// ReconcilerConfig tunes the sequence reconciliation job.
type ReconcilerConfig struct {
	// RegistryFile points at a YAML registry. Empty uses the built-in list.
	RegistryFile string `koanf:"registry_file"`

	// Concurrency is how many registry entries are processed at once.
	Concurrency int `koanf:"concurrency" validate:"min=0,max=16"`

	// SkipEmptyTables leaves counters of empty tables untouched.
	SkipEmptyTables bool `koanf:"skip_empty_tables"`

	// Schedule is a cron spec ("0 3 * * *", "@every 6h") for periodic runs.
	// Empty disables the scheduler.
	Schedule string `koanf:"schedule"`

	// AlertEmail receives a report when a background run has failed entries.
	AlertEmail string `koanf:"alert_email" validate:"omitempty,email"`

	// Timeout bounds one HTTP-triggered run, in seconds.
	Timeout int `koanf:"timeout" validate:"min=0"`
}

// Defaults applied to zero values by LoadConfig.
const (
	DefaultAdminRole          = "admin"
	DefaultReconcilerTimeout  = 60
	DefaultReconcilerParallel = 1
)

// LoadConfig loads configuration from environment variables, unmarshals it
// into Config, validates it, applies defaults and returns the result.
//
// Every failure is returned to the caller; main decides whether to exit.
func LoadConfig() (*Config, error) {
	// "." is the key-path delimiter koanf uses to represent nesting.
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}

	// "" means unmarshal everything from the root.
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	// Comma separated origins arrive as one string from the environment.
	mainConfig.Server.CORSAllowedOrigins = splitList(mainConfig.Server.CORSAllowedOrigins)

	mainConfig.applyDefaults()

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Service name and environment are forced so every trace and log line
	// carries the same identity regardless of what was set.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

func (c *Config) applyDefaults() {
	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}
	if c.Auth.Provider == "" {
		c.Auth.Provider = AuthProviderClerk
	}
	if c.Auth.AdminRole == "" {
		c.Auth.AdminRole = DefaultAdminRole
	}
	if c.Reconciler.Concurrency == 0 {
		c.Reconciler.Concurrency = DefaultReconcilerParallel
	}
	if c.Reconciler.Timeout == 0 {
		c.Reconciler.Timeout = DefaultReconcilerTimeout
	}
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
