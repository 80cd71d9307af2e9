package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mail providers accepted by MAIL_PROVIDER
const (
	MailProviderLog     = "log"
	MailProviderSES     = "ses"
	MailProviderWebhook = "webhook"
)

// minSessionSecretLength is the HS256 key size we accept
const minSessionSecretLength = 32

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Session        SessionConfig
	Mail           MailConfig
	ReceiptStorage ReceiptStorageConfig
	OCR            OCRConfig
	ReCAPTCHA      ReCAPTCHAConfig
	Hooks          HooksConfig
	Logging        LoggingConfig
	Observability  ObservabilityConfig
	Profiling      ProfilingConfig
	Cache          CacheConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	BaseURL        string
	AllowedOrigins []string
	// FrontendURL, when set, receives page requests that pass the session gate
	FrontendURL string
}

type DatabaseConfig struct {
	URL        string
	MaxConns   int32
	MinConns   int32
	CACertPath string
}

type SessionConfig struct {
	Secret                   string
	Issuer                   string
	TTLHours                 int
	LoginTokenTTLMinutes     int
	LoginTokenRetentionHours int
	CookieDomain             string
	CookieSecure             bool
}

type MailConfig struct {
	Provider   string
	From       string
	AWSRegion  string
	WebhookURL string
}

type ReceiptStorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
	PublicBaseURL   string
}

type OCRConfig struct {
	ProviderURL string
	APIKey      string
}

type ReCAPTCHAConfig struct {
	SecretKey string
	MinScore  float64
}

type HooksConfig struct {
	UserEventsURL string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

type CacheConfig struct {
	AccountTTLSeconds int // How long the session verifier trusts an account lookup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "") // OTLP over HTTP; empty disables tracing
	v.SetDefault("O11Y_BE_SERVICE_NAME", "pantry-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "pantry")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "pantry-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines,mutex,block")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)
	v.SetDefault("ACCOUNT_CACHE_TTL", 30)

	// Session defaults
	v.SetDefault("SESSION_ISSUER", "pantry-api")
	v.SetDefault("SESSION_TTL_HOURS", 720)
	v.SetDefault("LOGIN_TOKEN_TTL_MINUTES", 10)
	v.SetDefault("LOGIN_TOKEN_RETENTION_HOURS", 24)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", true)

	// Mail defaults
	v.SetDefault("MAIL_PROVIDER", MailProviderLog)
	v.SetDefault("MAIL_FROM", "Pantry <no-reply@localhost>")
	v.SetDefault("AWS_REGION", "us-east-1")

	v.SetDefault("RECAPTCHA_MIN_SCORE", 0.5)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			BaseURL:        strings.TrimRight(v.GetString("BASE_URL"), "/"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
			FrontendURL:    v.GetString("FRONTEND_URL"),
		},
		Database: DatabaseConfig{
			URL:        v.GetString("DATABASE_URL"),
			MaxConns:   v.GetInt32("DB_MAX_CONNS"),
			MinConns:   v.GetInt32("DB_MIN_CONNS"),
			CACertPath: v.GetString("DATABASE_CA_CERT_PATH"),
		},
		Session: SessionConfig{
			Secret:                   v.GetString("SESSION_SECRET"),
			Issuer:                   v.GetString("SESSION_ISSUER"),
			TTLHours:                 v.GetInt("SESSION_TTL_HOURS"),
			LoginTokenTTLMinutes:     v.GetInt("LOGIN_TOKEN_TTL_MINUTES"),
			LoginTokenRetentionHours: v.GetInt("LOGIN_TOKEN_RETENTION_HOURS"),
			CookieDomain:             v.GetString("COOKIE_DOMAIN"),
			CookieSecure:             v.GetBool("COOKIE_SECURE"),
		},
		Mail: MailConfig{
			Provider:   strings.ToLower(v.GetString("MAIL_PROVIDER")),
			From:       v.GetString("MAIL_FROM"),
			AWSRegion:  v.GetString("AWS_REGION"),
			WebhookURL: v.GetString("MAIL_WEBHOOK_URL"),
		},
		ReceiptStorage: ReceiptStorageConfig{
			AccessKeyID:     v.GetString("RECEIPT_STORAGE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("RECEIPT_STORAGE_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("RECEIPT_STORAGE_BUCKET_NAME"),
			Endpoint:        v.GetString("RECEIPT_STORAGE_ENDPOINT"),
			Region:          v.GetString("RECEIPT_STORAGE_REGION"),
			PublicBaseURL:   v.GetString("RECEIPT_STORAGE_PUBLIC_URL"),
		},
		OCR: OCRConfig{
			ProviderURL: v.GetString("OCR_PROVIDER_URL"),
			APIKey:      v.GetString("OCR_PROVIDER_API_KEY"),
		},
		ReCAPTCHA: ReCAPTCHAConfig{
			SecretKey: v.GetString("RECAPTCHA_SECRET_KEY"),
			MinScore:  v.GetFloat64("RECAPTCHA_MIN_SCORE"),
		},
		Hooks: HooksConfig{
			UserEventsURL: v.GetString("USER_EVENTS_WEBHOOK_URL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
		Cache: CacheConfig{
			AccountTTLSeconds: v.GetInt("ACCOUNT_CACHE_TTL"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList parses a comma-separated setting, dropping empty entries
func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Sessions
	if len(c.Session.Secret) < minSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}
	if c.Session.TTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.Session.LoginTokenTTLMinutes <= 0 {
		return fmt.Errorf("LOGIN_TOKEN_TTL_MINUTES must be positive")
	}
	if c.Session.LoginTokenRetentionHours <= 0 {
		return fmt.Errorf("LOGIN_TOKEN_RETENTION_HOURS must be positive")
	}

	// Server configuration
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	// Mail
	switch c.Mail.Provider {
	case MailProviderLog:
	case MailProviderSES:
		if c.Mail.From == "" || c.Mail.AWSRegion == "" {
			return fmt.Errorf("MAIL_FROM and AWS_REGION are required for the ses mail provider")
		}
	case MailProviderWebhook:
		if c.Mail.WebhookURL == "" {
			return fmt.Errorf("MAIL_WEBHOOK_URL is required for the webhook mail provider")
		}
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER %q", c.Mail.Provider)
	}

	if c.Mail.Provider == MailProviderLog && c.IsProduction() {
		return fmt.Errorf("MAIL_PROVIDER=log is not allowed in production")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// ReceiptScanningEnabled reports whether both storage and OCR are configured
func (c *Config) ReceiptScanningEnabled() bool {
	return c.ReceiptStorage.BucketName != "" && c.OCR.ProviderURL != ""
}

// SessionTTL returns the session lifetime
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
}

// LoginTokenTTL returns how long a magic link stays valid
func (c *Config) LoginTokenTTL() time.Duration {
	return time.Duration(c.Session.LoginTokenTTLMinutes) * time.Minute
}

// LoginTokenRetention returns how long spent or expired login tokens are kept
func (c *Config) LoginTokenRetention() time.Duration {
	return time.Duration(c.Session.LoginTokenRetentionHours) * time.Hour
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
