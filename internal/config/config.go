package config

import "time"

// Config holds all application configuration, organized into logical groups.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Ledger    LedgerConfig    `mapstructure:"ledger" validate:"required"`
	Market    MarketConfig    `mapstructure:"market"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	ReadTimeoutSeconds     int `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds    int `mapstructure:"write_timeout_seconds" validate:"gte=0"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication and token settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=0,lte=31"`

	// AdminPassword bootstraps the default admin account on first start.
	AdminPassword string `mapstructure:"admin_password" validate:"required,min=8"`
}

// LedgerConfig contains chain settings.
type LedgerConfig struct {
	Difficulty int `mapstructure:"difficulty" validate:"required,gte=1,lte=6"`
}

// MarketConfig tunes the emissions-driven price engine.
type MarketConfig struct {
	EmissionWeight  float64 `mapstructure:"emission_weight" validate:"gte=0,lte=1"`
	SentimentWeight float64 `mapstructure:"sentiment_weight" validate:"gte=0,lte=1"`
	VolumeWeight    float64 `mapstructure:"volume_weight" validate:"gte=0,lte=1"`
}

// SimulatorConfig controls the background emission feed.
type SimulatorConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	IntervalSeconds int     `mapstructure:"interval_seconds" validate:"gte=1"`
	Variance        float64 `mapstructure:"variance" validate:"gte=0,lte=1"`
}

// StorageConfig contains object storage settings for verification documents.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// SeedConfig controls demo data creation on startup.
type SeedConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	HistoryDays int  `mapstructure:"history_days" validate:"gte=0,lte=365"`
}

// Interval returns the simulator tick interval as a duration.
func (c SimulatorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
