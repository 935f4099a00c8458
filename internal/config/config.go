package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Stripe    StripeConfig    `yaml:"stripe"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Log       LogConfig       `yaml:"log"`
	Reaper    ReaperConfig    `yaml:"reaper"`
	Claims    ClaimsConfig    `yaml:"claims"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GRPCConfig controls the gRPC health endpoint. Port 0 disables it.
type GRPCConfig struct {
	Port           int           `yaml:"port"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig holds the secret shared with the auth provider.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// StripeConfig contains payment processor settings
type StripeConfig struct {
	Mode                 string `yaml:"mode"` // "mock" or "live"
	SecretKey            string `yaml:"secret_key"`
	SecretKeyFile        string `yaml:"secret_key_file"` // re-read on authentication failures
	WebhookSecret        string `yaml:"webhook_secret"`
	Currency             string `yaml:"currency"`
	ConnectCountry       string `yaml:"connect_country"`
	OnboardingRefreshURL string `yaml:"onboarding_refresh_url"`
	OnboardingReturnURL  string `yaml:"onboarding_return_url"`
}

// SendGridConfig enables e-mail copies of notifications when APIKey is set.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// ReaperConfig holds the age thresholds of the cleanup sweeps.
type ReaperConfig struct {
	StalePendingAfter  time.Duration `yaml:"stale_pending_after"`
	CancelledAfter     time.Duration `yaml:"cancelled_after"`
	OverduePickupAfter time.Duration `yaml:"overdue_pickup_after"`
	BatchSize          int           `yaml:"batch_size"`
}

// ClaimsConfig tunes dispute resolution.
type ClaimsConfig struct {
	// StrictClaimant rejects resolution of claims filed by neither party instead of
	// falling back to owner-claim semantics.
	StrictClaimant bool `yaml:"strict_claimant"`
}

// RateLimitConfig bounds request rates.
type RateLimitConfig struct {
	RequestsPerSecond     float64 `yaml:"requests_per_second"`
	Burst                 int     `yaml:"burst"`
	PaymentIntentsPerHour int     `yaml:"payment_intents_per_hour"`
}

// SchedulerConfig contains cron schedule settings (seconds precision)
type SchedulerConfig struct {
	StalePendingSweep  string `yaml:"stale_pending_sweep"`
	CancelledSweep     string `yaml:"cancelled_sweep"`
	OverduePickupSweep string `yaml:"overdue_pickup_sweep"`
	AccountSync        string `yaml:"account_sync"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Stripe
	if val := os.Getenv("STRIPE_MODE"); val != "" {
		c.Stripe.Mode = val
	}
	if val := os.Getenv("STRIPE_SECRET_KEY"); val != "" {
		c.Stripe.SecretKey = val
	}
	if val := os.Getenv("STRIPE_WEBHOOK_SECRET"); val != "" {
		c.Stripe.WebhookSecret = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.GRPC.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	switch c.Stripe.Mode {
	case "":
		c.Stripe.Mode = "mock"
	case "mock":
	case "live":
		if c.Stripe.SecretKey == "" && c.Stripe.SecretKeyFile == "" {
			return fmt.Errorf("stripe secret key is required in live mode")
		}
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe webhook secret is required in live mode")
		}
	default:
		return fmt.Errorf("unsupported stripe mode: %s", c.Stripe.Mode)
	}
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "ron"
	}
	if c.Stripe.ConnectCountry == "" {
		c.Stripe.ConnectCountry = "RO"
	}

	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when api_key is set")
	}

	// Server defaults
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.GRPC.HealthInterval == 0 {
		c.GRPC.HealthInterval = 15 * time.Second
	}

	// Reaper defaults
	if c.Reaper.StalePendingAfter == 0 {
		c.Reaper.StalePendingAfter = 48 * time.Hour
	}
	if c.Reaper.CancelledAfter == 0 {
		c.Reaper.CancelledAfter = 30 * time.Minute
	}
	if c.Reaper.OverduePickupAfter == 0 {
		c.Reaper.OverduePickupAfter = 48 * time.Hour
	}
	if c.Reaper.BatchSize == 0 {
		c.Reaper.BatchSize = 500
	}

	// Rate limit defaults
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if c.RateLimit.PaymentIntentsPerHour == 0 {
		c.RateLimit.PaymentIntentsPerHour = 10
	}

	// Scheduler defaults
	if c.Scheduler.StalePendingSweep == "" {
		c.Scheduler.StalePendingSweep = "0 */30 * * * *" // every 30 minutes
	}
	if c.Scheduler.CancelledSweep == "" {
		c.Scheduler.CancelledSweep = "0 */30 * * * *"
	}
	if c.Scheduler.OverduePickupSweep == "" {
		c.Scheduler.OverduePickupSweep = "0 */30 * * * *"
	}
	if c.Scheduler.AccountSync == "" {
		c.Scheduler.AccountSync = "0 15 * * * *" // hourly at :15
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the health endpoint address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.GRPC.Port)
}
