package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"RELAY_PRIMARY.ENV":                 "development",
		"RELAY_SERVER.PORT":                 "8080",
		"RELAY_SERVER.READ_TIMEOUT":         "30",
		"RELAY_SERVER.WRITE_TIMEOUT":        "30",
		"RELAY_SERVER.IDLE_TIMEOUT":         "60",
		"RELAY_SERVER.CORS_ALLOWED_ORIGINS": "http://localhost:3000, https://admin.example.com",
		"RELAY_DATABASE.HOST":               "localhost",
		"RELAY_DATABASE.PORT":               "5432",
		"RELAY_DATABASE.USER":               "postgres",
		"RELAY_DATABASE.PASSWORD":           "postgres",
		"RELAY_DATABASE.NAME":               "instruments",
		"RELAY_DATABASE.SSL_MODE":           "disable",
		"RELAY_DATABASE.MAX_OPEN_CONNS":     "10",
		"RELAY_DATABASE.MAX_IDLE_CONNS":     "5",
		"RELAY_DATABASE.CONN_MAX_LIFETIME":  "300",
		"RELAY_DATABASE.CONN_MAX_IDLE_TIME": "60",
		"RELAY_REDIS.ADDRESS":               "localhost:6379",
		"RELAY_AUTH.SECRET_KEY":             "sk_test_123",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://admin.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 5432, cfg.Database.Port)

	assert.Equal(t, AuthProviderClerk, cfg.Auth.Provider)
	assert.Equal(t, DefaultAdminRole, cfg.Auth.AdminRole)

	assert.Equal(t, DefaultReconcilerParallel, cfg.Reconciler.Concurrency)
	assert.Equal(t, DefaultReconcilerTimeout, cfg.Reconciler.Timeout)
	assert.False(t, cfg.Reconciler.SkipEmptyTables)
	assert.Empty(t, cfg.Reconciler.RegistryFile)

	require.NotNil(t, cfg.Observability)
	assert.Equal(t, ServiceName, cfg.Observability.ServiceName)
	assert.Equal(t, "development", cfg.Observability.Environment)
	assert.False(t, cfg.Observability.NewRelicEnabled())
}

func TestLoadConfig_Reconciler(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RELAY_AUTH.PROVIDER", "jwt")
	t.Setenv("RELAY_RECONCILER.CONCURRENCY", "4")
	t.Setenv("RELAY_RECONCILER.SKIP_EMPTY_TABLES", "true")
	t.Setenv("RELAY_RECONCILER.SCHEDULE", "@every 6h")
	t.Setenv("RELAY_RECONCILER.REGISTRY_FILE", "/etc/relay/registry.yaml")
	t.Setenv("RELAY_RECONCILER.ALERT_EMAIL", "ops@example.com")
	t.Setenv("RELAY_RECONCILER.TIMEOUT", "15")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, AuthProviderJWT, cfg.Auth.Provider)
	assert.Equal(t, ReconcilerConfig{
		RegistryFile:    "/etc/relay/registry.yaml",
		Concurrency:     4,
		SkipEmptyTables: true,
		Schedule:        "@every 6h",
		AlertEmail:      "ops@example.com",
		Timeout:         15,
	}, cfg.Reconciler)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown auth provider", key: "RELAY_AUTH.PROVIDER", val: "basic"},
		{name: "concurrency too high", key: "RELAY_RECONCILER.CONCURRENCY", val: "64"},
		{name: "bad alert email", key: "RELAY_RECONCILER.ALERT_EMAIL", val: "not-an-address"},
		{name: "missing secret", key: "RELAY_AUTH.SECRET_KEY", val: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestObservabilityConfig_Validate(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	require.NoError(t, cfg.Validate())

	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultObservabilityConfig()
	cfg.Logging.SlowQueryThreshold = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestObservabilityConfig_GetLogLevel(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	cfg.Logging.Level = ""

	cfg.Environment = "production"
	assert.Equal(t, "info", cfg.GetLogLevel())
	assert.True(t, cfg.IsProduction())

	cfg.Environment = "development"
	assert.Equal(t, "debug", cfg.GetLogLevel())

	cfg.Logging.Level = "warn"
	assert.Equal(t, "warn", cfg.GetLogLevel())
}
