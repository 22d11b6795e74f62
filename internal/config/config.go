// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrOpenAIAPIKeyRequired is returned when OPENAI_API_KEY is not set.
	ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
	// ErrRendererURLRequired is returned when RENDERER_URL is not set.
	ErrRendererURLRequired = errors.New("config: RENDERER_URL is required")
	// ErrS3BucketRequired is returned when S3_BUCKET is not set.
	ErrS3BucketRequired = errors.New("config: S3_BUCKET is required")
	// ErrJWTSecretRequired is returned when JWT_SECRET is not set.
	ErrJWTSecretRequired = errors.New("config: JWT_SECRET is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Script generation settings
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY, required" json:"-"` // Masked in JSON
	OpenAIModel     string        `env:"OPENAI_MODEL, default=gpt-4o-mini" json:"openai_model"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL" json:"openai_base_url,omitempty"`
	GenerateTimeout time.Duration `env:"GENERATE_TIMEOUT, default=2m" json:"generate_timeout"`

	// Render worker settings
	RendererURL   string        `env:"RENDERER_URL, required" json:"renderer_url"`
	RenderTimeout time.Duration `env:"RENDER_TIMEOUT, default=5m" json:"render_timeout"`

	// Object store settings
	S3Bucket           string        `env:"S3_BUCKET, required" json:"s3_bucket"`
	S3Region           string        `env:"S3_REGION, default=us-east-1" json:"s3_region"`
	S3Endpoint         string        `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string        `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON
	SignedURLTTL       time.Duration `env:"SIGNED_URL_TTL, default=1h" json:"signed_url_ttl"`

	// Persistence settings. When DATABASE_URL is empty the server runs on the
	// in-memory repository, which is only suitable for development.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Auth settings
	JWTSecret string `env:"JWT_SECRET, required" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "OPENAI_API_KEY") {
			return nil, ErrOpenAIAPIKeyRequired
		}
		if strings.Contains(err.Error(), "RENDERER_URL") {
			return nil, ErrRendererURLRequired
		}
		if strings.Contains(err.Error(), "S3_BUCKET") {
			return nil, ErrS3BucketRequired
		}
		if strings.Contains(err.Error(), "JWT_SECRET") {
			return nil, ErrJWTSecretRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrOpenAIAPIKeyRequired
	}
	if c.RendererURL == "" {
		return ErrRendererURLRequired
	}
	if c.S3Bucket == "" {
		return ErrS3BucketRequired
	}
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	return nil
}

// PostgresEnabled returns true if a database connection string is configured.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, OpenAIModel: %s, RendererURL: %s, S3Bucket: %s, S3Region: %s, SignedURLTTL: %s, Postgres: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.OpenAIModel,
		c.RendererURL,
		c.S3Bucket,
		c.S3Region,
		c.SignedURLTTL,
		c.PostgresEnabled(),
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
