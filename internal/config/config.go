package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port          string `yaml:"port" env:"SERVER_PORT"`
		Mode          string `yaml:"mode" env:"SERVER_MODE"`
		PublicBaseURL string `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		SiteURL       string `yaml:"site_url" env:"SITE_URL"`
		APIKey        string `yaml:"api_key" env:"SERVER_API_KEY"`
		// Timezone buckets rides into calendar days and formats reminders.
		Timezone string `yaml:"timezone" env:"APP_TIMEZONE"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
	} `yaml:"database"`

	JWT struct {
		Secret   string `yaml:"secret" env:"JWT_SECRET"`
		Issuer   string `yaml:"issuer" env:"JWT_ISSUER"`
		Audience string `yaml:"audience" env:"JWT_AUDIENCE"`
		// DevTokenTTL bounds tokens minted by `ridectl token`.
		DevTokenTTL string `yaml:"dev_token_ttl" env:"JWT_DEV_TOKEN_TTL"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Storage struct {
		Driver    string `yaml:"driver" env:"STORAGE_DRIVER"`
		Bucket    string `yaml:"bucket" env:"STORAGE_BUCKET"`
		LocalPath string `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
		MaxSizeMB int    `yaml:"max_size_mb" env:"STORAGE_MAX_SIZE_MB"`
		S3        struct {
			Endpoint       string `yaml:"endpoint" env:"S3_ENDPOINT"`
			Region         string `yaml:"region" env:"S3_REGION"`
			AccessKey      string `yaml:"access_key" env:"S3_ACCESS_KEY"`
			SecretKey      string `yaml:"secret_key" env:"S3_SECRET_KEY"`
			ForcePathStyle bool   `yaml:"force_path_style" env:"S3_FORCE_PATH_STYLE"`
			PublicURL      string `yaml:"public_url" env:"S3_PUBLIC_URL"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Weather struct {
		BaseURL     string `yaml:"base_url" env:"WEATHER_BASE_URL"`
		Timeout     string `yaml:"timeout" env:"WEATHER_TIMEOUT"`
		HorizonDays int    `yaml:"horizon_days" env:"WEATHER_HORIZON_DAYS"`
	} `yaml:"weather"`

	Geocoding struct {
		BaseURL   string `yaml:"base_url" env:"GEOCODING_BASE_URL"`
		Timeout   string `yaml:"timeout" env:"GEOCODING_TIMEOUT"`
		Debounce  string `yaml:"debounce" env:"GEOCODING_DEBOUNCE"`
		UserAgent string `yaml:"user_agent" env:"GEOCODING_USER_AGENT"`
		Limit     int    `yaml:"limit" env:"GEOCODING_LIMIT"`
	} `yaml:"geocoding"`

	Realtime struct {
		NatsURL       string `yaml:"nats_url" env:"NATS_URL"`
		Subject       string `yaml:"subject" env:"REALTIME_SUBJECT"`
		AllowedOrigin string `yaml:"allowed_origin" env:"REALTIME_ALLOWED_ORIGIN"`
	} `yaml:"realtime"`

	SMTP struct {
		Host     string `yaml:"host" env:"SMTP_HOST"`
		Port     int    `yaml:"port" env:"SMTP_PORT"`
		Username string `yaml:"username" env:"SMTP_USERNAME"`
		Password string `yaml:"password" env:"SMTP_PASSWORD"`
		From     string `yaml:"from" env:"SMTP_FROM"`
	} `yaml:"smtp"`

	Telemetry struct {
		OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
		Metrics      bool   `yaml:"metrics" env:"METRICS_ENABLED"`
	} `yaml:"telemetry"`
}

// LoadConfig loads configuration from a file, an optional .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.PublicBaseURL = "http://localhost:8080"
	config.Server.SiteURL = "http://localhost:3000"
	config.Server.Timezone = "UTC"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "motobuddies"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.AutoMigrate = true

	config.JWT.Issuer = ""
	config.JWT.Audience = "authenticated"
	config.JWT.DevTokenTTL = "24h"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Storage.Driver = "local"
	config.Storage.Bucket = "gpx-files"
	config.Storage.LocalPath = "uploads"
	config.Storage.MaxSizeMB = 10
	config.Storage.S3.Region = "us-east-1"
	config.Storage.S3.ForcePathStyle = true

	config.Weather.BaseURL = "https://api.open-meteo.com/v1/forecast"
	config.Weather.Timeout = "5s"
	config.Weather.HorizonDays = 16

	config.Geocoding.BaseURL = "https://nominatim.openstreetmap.org/search"
	config.Geocoding.Timeout = "5s"
	config.Geocoding.Debounce = "350ms"
	config.Geocoding.UserAgent = "motobuddies/1.0"
	config.Geocoding.Limit = 5

	config.Realtime.Subject = "motobuddies.notifications"

	config.SMTP.Port = 587

	config.Telemetry.ServiceName = "motobuddies-api"
	config.Telemetry.Metrics = true
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.DevTokenTTL); err != nil {
		return fmt.Errorf("invalid JWT dev token TTL: %w", err)
	}

	for name, value := range map[string]string{
		"weather timeout":    config.Weather.Timeout,
		"geocoding timeout":  config.Geocoding.Timeout,
		"geocoding debounce": config.Geocoding.Debounce,
		"db conn lifetime":   config.Database.ConnMaxLifetime,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	if _, err := time.LoadLocation(config.Server.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", config.Server.Timezone, err)
	}

	if config.Weather.HorizonDays <= 0 {
		return fmt.Errorf("weather horizon must be positive")
	}

	switch strings.ToLower(config.Storage.Driver) {
	case "local":
		if config.Storage.LocalPath == "" {
			return fmt.Errorf("storage local_path is required for the local driver")
		}
	case "s3":
		if config.Storage.S3.Endpoint == "" {
			return fmt.Errorf("S3 endpoint is required for the s3 driver")
		}
		if config.Storage.S3.AccessKey == "" || config.Storage.S3.SecretKey == "" {
			return fmt.Errorf("S3 access key and secret key are required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if _, err := url.Parse(config.Server.SiteURL); err != nil {
		return fmt.Errorf("invalid site url: %w", err)
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// SMTPEnabled reports whether reminder emails can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
}

// Location returns the configured timezone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Duration parses a validated duration field, falling back when empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return fallback
}
