package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Log      LogConfig      `mapstructure:"log"`
	Media    MediaConfig    `mapstructure:"media"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`         // "development" or "production"
	CORSOrigins []string `mapstructure:"cors_origins"` // Allowed origins, "*" for any
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // "sqlite" or "postgres"
	DSN             string `mapstructure:"dsn"`               // Connection string
	LogLevel        string `mapstructure:"log_level"`         // GORM log level, defaults to log.level
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // Maximum idle connections (Postgres)
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // Maximum open connections (Postgres)
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // Connection max lifetime in minutes (Postgres)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`      // Secret for JWT signing
	TokenTTLHours int    `mapstructure:"token_ttl_hours"` // Token validity
	LoginURL      string `mapstructure:"login_url"`       // Where browsers are sent when unauthenticated
}

// QueueConfig holds job queue configuration
type QueueConfig struct {
	Type       string `mapstructure:"type"`        // "memory" or "valkey"
	ValkeyAddr string `mapstructure:"valkey_addr"` // Valkey address (if type=valkey), e.g., "localhost:6379"
	Key        string `mapstructure:"key"`         // Valkey list key
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format     string `mapstructure:"format"` // "json" or "text"
	Level      string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	File       string `mapstructure:"file"`   // Optional rotating log file
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MediaConfig holds article image storage configuration
type MediaConfig struct {
	Driver      string `mapstructure:"driver"`   // "local" or "s3"
	Dir         string `mapstructure:"dir"`      // Local directory (driver=local)
	BaseURL     string `mapstructure:"base_url"` // Public URL prefix for stored images
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"` // Custom endpoint for S3-compatible stores
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

// IngestConfig holds configuration for generated-article ingestion
type IngestConfig struct {
	InboxDir string `mapstructure:"inbox_dir"` // Where the generator drops batch files
	Schedule string `mapstructure:"schedule"`  // Cron spec for inbox scans, empty disables
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	// A .env file is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/newsdesk/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return unmarshal(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./newsdesk.db")
	v.SetDefault("database.log_level", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60) // 60 minutes
	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("auth.login_url", "/api/v1/user/login")
	v.SetDefault("queue.type", "memory")
	v.SetDefault("queue.valkey_addr", "localhost:6379")
	v.SetDefault("queue.key", "newsdesk:jobs")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("media.driver", "local")
	v.SetDefault("media.dir", "./data/media")
	v.SetDefault("media.base_url", "/media")
	v.SetDefault("media.s3_bucket", "")
	v.SetDefault("media.s3_region", "us-east-1")
	v.SetDefault("media.s3_endpoint", "")
	v.SetDefault("media.s3_access_key", "")
	v.SetDefault("media.s3_secret_key", "")
	v.SetDefault("ingest.inbox_dir", "./data/inbox")
	v.SetDefault("ingest.schedule", "@every 5m")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	// Environment variables override
	v.SetEnvPrefix("NEWSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = cfg.Log.Level
	}

	return &cfg, nil
}

// LoadFile reads configuration from an explicit file, then applies environment overrides
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}
