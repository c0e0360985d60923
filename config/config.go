package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string   `env:"DATABASE_URL" validate:"required"`
	Port               string   `env:"PORT" envDefault:"8080"`
	GoEnv              string   `env:"GO_ENV" envDefault:"development" validate:"oneof=development test production"`
	Auth0Domain        string   `env:"AUTH0_DOMAIN"`
	Auth0Audience      string   `env:"AUTH0_AUDIENCE"`
	AWSRegion          string   `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSS3Bucket        string   `env:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string   `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string   `env:"AWS_SECRET_ACCESS_KEY"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	// Order workflow
	RedisURL                string        `env:"REDIS_URL" validate:"omitempty,url"`
	OrderLockTTL            time.Duration `env:"ORDER_LOCK_TTL" envDefault:"10s" validate:"gt=0"`
	OrderLockWait           time.Duration `env:"ORDER_LOCK_WAIT" envDefault:"5s" validate:"gt=0"`
	StrictStatusTransitions bool          `env:"STRICT_STATUS_TRANSITIONS" envDefault:"false"`
	BadgeRulesFile          string        `env:"BADGE_RULES_FILE"`

	// Outbox relay
	RabbitMQURL        string        `env:"RABBITMQ_URL" validate:"omitempty,url"`
	EventsExchange     string        `env:"EVENTS_EXCHANGE" envDefault:"stitchwise.orders"`
	EventRelayInterval time.Duration `env:"EVENT_RELAY_INTERVAL" envDefault:"5s" validate:"gt=0"`
	EventRelayBatch    int           `env:"EVENT_RELAY_BATCH" envDefault:"100" validate:"gt=0"`
}

var (
	configValidator = validator.New()
	appConfig       *Config
)

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	// Try to load environment-specific file first, then .env.
	// In production variables are set directly so missing files are fine.
	envFile := fmt.Sprintf(".env.%s", goEnv)
	if err := godotenv.Load(envFile); err != nil {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfig = &cfg
	return &cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the configuration loaded by Load
func GetConfig() *Config {
	return appConfig
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// S3Enabled reports whether attachment uploads can be stored
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != ""
}
