// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret                string        `mapstructure:"JWT_SECRET"`
	JWTIssuer                string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL           time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL          time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	Port                     string        `mapstructure:"PORT"`
	BaseURL                  string        `mapstructure:"BASE_URL"`
	DBHost                   string        `mapstructure:"DB_HOST"`
	DBPort                   string        `mapstructure:"DB_PORT"`
	DBUser                   string        `mapstructure:"DB_USER"`
	DBPassword               string        `mapstructure:"DB_PASSWORD"`
	DBName                   string        `mapstructure:"DB_NAME"`
	DBSSLMode                string        `mapstructure:"DB_SSLMODE"`
	DBReadHost               string        `mapstructure:"DB_READ_HOST"`
	DBReadPort               string        `mapstructure:"DB_READ_PORT"`
	DBReadUser               string        `mapstructure:"DB_READ_USER"`
	DBReadPassword           string        `mapstructure:"DB_READ_PASSWORD"`
	DBMaxOpenConns           int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int           `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	RedisURL                 string        `mapstructure:"REDIS_URL"`
	AllowedOrigins           string        `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags             string        `mapstructure:"FEATURE_FLAGS"`
	Env                      string        `mapstructure:"APP_ENV"`
	GoogleClientID           string        `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret       string        `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL        string        `mapstructure:"GOOGLE_REDIRECT_URL"`
	MediaDir                 string        `mapstructure:"MEDIA_DIR"`
	MediaBaseURL             string        `mapstructure:"MEDIA_BASE_URL"`
	MediaMaxUploadSizeMB     int           `mapstructure:"MEDIA_MAX_UPLOAD_MB"`
	TracingExporter          string        `mapstructure:"TRACING_EXPORTER"`
	TracingEndpoint          string        `mapstructure:"TRACING_ENDPOINT"`
	TracingSampleRatio       float64       `mapstructure:"TRACING_SAMPLE_RATIO"`
	RateLimitPerMinute       int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults cover a bare checkout.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "clipshare")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "clipshare-api")
	viper.SetDefault("ACCESS_TOKEN_TTL", "15m")
	viper.SetDefault("REFRESH_TOKEN_TTL", "8760h")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:5173/google/callback")
	viper.SetDefault("MEDIA_DIR", "./uploads")
	viper.SetDefault("MEDIA_BASE_URL", "http://localhost:8080/media")
	viper.SetDefault("MEDIA_MAX_UPLOAD_MB", 100)
	viper.SetDefault("TRACING_EXPORTER", "none")
	viper.SetDefault("TRACING_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
}

func (c *Config) normalize() {
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.MediaBaseURL = strings.TrimRight(c.MediaBaseURL, "/")
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AccessTokenTTL > 0 && c.RefreshTokenTTL > 0 && c.AccessTokenTTL >= c.RefreshTokenTTL {
		return errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	if c.MediaMaxUploadSizeMB < 0 {
		return errors.New("MEDIA_MAX_UPLOAD_MB must not be negative")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// ConnMaxLifetime returns the pool lifetime as a duration.
func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeMinutes) * time.Minute
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int {
	return c.MediaMaxUploadSizeMB * 1024 * 1024
}
