package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const devSessionSecret = "dev-secret-not-for-production"

var validate = validator.New()

// Config holds application configuration
type Config struct {
	Port              string        `validate:"required,numeric"`
	SessionSecret     string        `validate:"required"`
	AllowedOrigins    string
	Environment       string        `validate:"omitempty,oneof=development dev staging production prod"`
	DeliveryMode      string        `validate:"oneof=push pull both"`
	HistoryLimit      int           `validate:"min=1,max=1000"`
	PollInterval      time.Duration `validate:"min=100ms"`
	SessionTTL        time.Duration `validate:"min=1m"`
	SniffImages       bool
	RabbitMQURL       string `validate:"omitempty,url"`
	OpenAPIValidation bool
	LogLevel          string `validate:"oneof=debug info warn error"`
	LogFormat         string `validate:"oneof=json text"`
}

// Load reads configuration from the environment (and .env if present),
// applies overrides such as command line flags, then validates the result
func Load(overrides ...func(*Config)) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables without validating
func FromEnv() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")

	var errs []error
	historyLimit, err := getEnvInt("HISTORY_LIMIT", 100)
	errs = append(errs, err)
	pollInterval, err := getEnvDuration("POLL_INTERVAL", 2*time.Second)
	errs = append(errs, err)
	sessionTTL, err := getEnvDuration("SESSION_TTL", 24*time.Hour)
	errs = append(errs, err)
	sniffImages, err := getEnvBool("SNIFF_IMAGES", false)
	errs = append(errs, err)
	openAPIValidation, err := getEnvBool("OPENAPI_VALIDATION", !isProduction(environment))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"),
		Environment:       environment,
		DeliveryMode:      getEnv("DELIVERY_MODE", "both"),
		HistoryLimit:      historyLimit,
		PollInterval:      pollInterval,
		SessionTTL:        sessionTTL,
		SniffImages:       sniffImages,
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		OpenAPIValidation: openAPIValidation,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}, nil
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	// Production environment requires strong secrets
	if c.IsProduction() {
		if c.SessionSecret == "" || c.SessionSecret == devSessionSecret || c.SessionSecret == "change-this-in-production" {
			return fmt.Errorf("SESSION_SECRET must be set to a strong random value in production")
		}

		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production (got %d)", len(c.SessionSecret))
		}

		if c.AllowedOrigins == "*" {
			return fmt.Errorf("ALLOWED_ORIGINS must list explicit origins in production")
		}
	} else if c.SessionSecret == "" {
		// Development/staging: provide default if not set
		c.SessionSecret = devSessionSecret
		slog.Warn("using default SESSION_SECRET for development")
	}

	return validate.Struct(c)
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

// FeedEnabled reports whether messages are mirrored to RabbitMQ
func (c *Config) FeedEnabled() bool {
	return c.RabbitMQURL != ""
}

func isProduction(environment string) bool {
	return environment == "production" || environment == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
