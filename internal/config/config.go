package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port            string `mapstructure:"SERVER_PORT"`
	Host            string `mapstructure:"SERVER_HOST"`
	Env             string `mapstructure:"ENV"`
	ShutdownTimeout string `mapstructure:"SERVER_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	MigrationsPath  string `mapstructure:"MIGRATIONS_PATH"`
}

type RedisConfig struct {
	URL string `mapstructure:"REDIS_URL"`
}

type SchedulerConfig struct {
	Interval string `mapstructure:"SCHEDULER_INTERVAL"`
	Timezone string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	StorageDriver             string `mapstructure:"STORAGE_DRIVER"`
	OverpaymentPolicy         string `mapstructure:"OVERPAYMENT_POLICY"`
	AgreementMaxPeriods       int    `mapstructure:"AGREEMENT_MAX_PERIODS"`
	AgreementDefaultThreshold int    `mapstructure:"AGREEMENT_DEFAULT_THRESHOLD"`
	TxMaxRetries              int    `mapstructure:"TX_MAX_RETRIES"`
	SummaryCacheTTL           string `mapstructure:"SUMMARY_CACHE_TTL"`
	PaymentReversalWindow     string `mapstructure:"PAYMENT_REVERSAL_WINDOW"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":                 "8080",
	"SERVER_HOST":                 "0.0.0.0",
	"ENV":                         "development",
	"SERVER_SHUTDOWN_TIMEOUT":     "15s",
	"DATABASE_URL":                "",
	"DATABASE_MAX_OPEN_CONNS":     25,
	"DATABASE_MAX_IDLE_CONNS":     5,
	"DATABASE_CONN_MAX_LIFETIME":  "30m",
	"MIGRATIONS_PATH":             "migrations",
	"REDIS_URL":                   "",
	"SCHEDULER_INTERVAL":          "1h",
	"SCHEDULER_TIMEZONE":          "America/Mexico_City",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "json",
	"STORAGE_DRIVER":              StorageDriverPostgres,
	"OVERPAYMENT_POLICY":          "reject",
	"AGREEMENT_MAX_PERIODS":       36,
	"AGREEMENT_DEFAULT_THRESHOLD": 2,
	"TX_MAX_RETRIES":              3,
	"SUMMARY_CACHE_TTL":           "5m",
	"PAYMENT_REVERSAL_WINDOW":     "360h",
	"HEALTH_CHECK_TIMEOUT":        "5s",
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// .env values never override variables already set in the environment
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Business.StorageDriver {
	case StorageDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverMemory)
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DATABASE_MAX_OPEN_CONNS must be greater than 0")
	}

	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DATABASE_MAX_IDLE_CONNS must be between 0 and DATABASE_MAX_OPEN_CONNS")
	}

	policy := strings.ToLower(c.Business.OverpaymentPolicy)
	if policy != "reject" && policy != "report" {
		return fmt.Errorf("OVERPAYMENT_POLICY must be reject or report")
	}

	if c.Business.AgreementMaxPeriods < 1 || c.Business.AgreementMaxPeriods > 36 {
		return fmt.Errorf("AGREEMENT_MAX_PERIODS must be between 1 and 36")
	}

	if c.Business.AgreementDefaultThreshold <= 0 {
		return fmt.Errorf("AGREEMENT_DEFAULT_THRESHOLD must be greater than 0")
	}

	if c.Business.TxMaxRetries < 0 {
		return fmt.Errorf("TX_MAX_RETRIES must not be negative")
	}

	durations := map[string]string{
		"SERVER_SHUTDOWN_TIMEOUT":    c.Server.ShutdownTimeout,
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"SCHEDULER_INTERVAL":         c.Scheduler.Interval,
		"SUMMARY_CACHE_TTL":          c.Business.SummaryCacheTTL,
		"PAYMENT_REVERSAL_WINDOW":    c.Business.PaymentReversalWindow,
		"HEALTH_CHECK_TIMEOUT":       c.Health.Timeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	if c.GetPaymentReversalWindow() <= 0 {
		return fmt.Errorf("PAYMENT_REVERSAL_WINDOW must be greater than 0")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetOverpaymentPolicy returns the normalized overpayment policy
func (c *Config) GetOverpaymentPolicy() string {
	return strings.ToLower(c.Business.OverpaymentPolicy)
}

// GetSchedulerInterval returns the scheduler interval as duration
func (c *Config) GetSchedulerInterval() time.Duration {
	duration, _ := time.ParseDuration(c.Scheduler.Interval)
	return duration
}

// GetSchedulerLocation returns the scheduler timezone
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetShutdownTimeout returns the graceful shutdown timeout
func (c *Config) GetShutdownTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return timeout
}

// GetConnMaxLifetime returns the maximum lifetime of a pooled connection
func (c *Config) GetConnMaxLifetime() time.Duration {
	lifetime, _ := time.ParseDuration(c.Database.ConnMaxLifetime)
	return lifetime
}

// GetSummaryCacheTTL returns how long a debt summary stays cached
func (c *Config) GetSummaryCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.SummaryCacheTTL)
	return ttl
}

// GetPaymentReversalWindow returns how long a debt payment recorded outside
// any period stays reversible
func (c *Config) GetPaymentReversalWindow() time.Duration {
	window, _ := time.ParseDuration(c.Business.PaymentReversalWindow)
	return window
}
