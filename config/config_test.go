package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AppEnv:         "development",
			BaseURL:        "http://localhost:8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{URL: "postgres://pantry@localhost/pantry"},
		Session: SessionConfig{
			Secret:                   testSecret,
			TTLHours:                 720,
			LoginTokenTTLMinutes:     10,
			LoginTokenRetentionHours: 24,
		},
		Mail: MailConfig{Provider: MailProviderLog},
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name:     "development environment",
			config:   &Config{Server: ServerConfig{AppEnv: "development"}},
			expected: true,
		},
		{
			name:     "debug gin mode",
			config:   &Config{Server: ServerConfig{GinMode: "debug"}},
			expected: true,
		},
		{
			name:     "release mode",
			config:   &Config{Server: ServerConfig{GinMode: "release", AppEnv: "production"}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.IsDevelopment())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "missing database url",
			mutate:   func(c *Config) { c.Database.URL = "" },
			errorMsg: "DATABASE_URL is required",
		},
		{
			name:     "short session secret",
			mutate:   func(c *Config) { c.Session.Secret = "too-short" },
			errorMsg: "SESSION_SECRET must be at least 32 bytes",
		},
		{
			name:     "zero login token ttl",
			mutate:   func(c *Config) { c.Session.LoginTokenTTLMinutes = 0 },
			errorMsg: "LOGIN_TOKEN_TTL_MINUTES must be positive",
		},
		{
			name:     "missing base url",
			mutate:   func(c *Config) { c.Server.BaseURL = "" },
			errorMsg: "BASE_URL is required",
		},
		{
			name:     "webhook provider without url",
			mutate:   func(c *Config) { c.Mail.Provider = MailProviderWebhook },
			errorMsg: "MAIL_WEBHOOK_URL is required",
		},
		{
			name: "ses provider",
			mutate: func(c *Config) {
				c.Mail.Provider = MailProviderSES
				c.Mail.From = "no-reply@pantry.test"
				c.Mail.AWSRegion = "eu-west-1"
			},
		},
		{
			name:     "unknown provider",
			mutate:   func(c *Config) { c.Mail.Provider = "carrier-pigeon" },
			errorMsg: "unsupported MAIL_PROVIDER",
		},
		{
			name:     "log provider in production",
			mutate:   func(c *Config) { c.Server.AppEnv = "production" },
			errorMsg: "MAIL_PROVIDER=log is not allowed in production",
		},
		{
			name: "profiling without endpoint",
			mutate: func(c *Config) {
				c.Profiling.Enabled = true
			},
			errorMsg: "O11Y_PROFILING_ENDPOINT is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, 720*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 10*time.Minute, cfg.LoginTokenTTL())
	assert.Equal(t, 24*time.Hour, cfg.LoginTokenRetention())
}

func TestConfig_ReceiptScanningEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.ReceiptScanningEnabled())

	cfg.ReceiptStorage.BucketName = "receipts"
	assert.False(t, cfg.ReceiptScanningEnabled())

	cfg.OCR.ProviderURL = "https://ocr.test"
	assert.True(t, cfg.ReceiptScanningEnabled())
}

func chdirTemp(t *testing.T) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(originalDir) })
}

func TestLoad_WithDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://pantry@localhost/pantry")
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "pantry-api", cfg.Session.Issuer)
	assert.Equal(t, 720, cfg.Session.TTLHours)
	assert.Equal(t, 10, cfg.Session.LoginTokenTTLMinutes)
	assert.Equal(t, 24, cfg.Session.LoginTokenRetentionHours)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, MailProviderLog, cfg.Mail.Provider)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 30, cfg.Cache.AccountTTLSeconds)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "staging")
	t.Setenv("BASE_URL", "https://pantry.test/")
	t.Setenv("ALLOWED_CORS_ORIGINS", "https://pantry.test, https://www.pantry.test,")
	t.Setenv("DATABASE_URL", "postgres://pantry@db/pantry")
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("LOGIN_TOKEN_TTL_MINUTES", "5")
	t.Setenv("MAIL_PROVIDER", "WEBHOOK")
	t.Setenv("MAIL_WEBHOOK_URL", "https://mail.pantry.test/send")
	t.Setenv("RECEIPT_STORAGE_BUCKET_NAME", "receipts")
	t.Setenv("OCR_PROVIDER_URL", "https://ocr.pantry.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://pantry.test", cfg.Server.BaseURL)
	assert.Equal(t, []string{"https://pantry.test", "https://www.pantry.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.LoginTokenTTL())
	assert.Equal(t, MailProviderWebhook, cfg.Mail.Provider)
	assert.True(t, cfg.ReceiptScanningEnabled())
}

func TestLoad_ValidationFailure(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
