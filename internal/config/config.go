package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseWebAPIKey                string `mapstructure:"FIREBASE_WEB_API_KEY"` // Needed for password sign-in
	ClientURL                        string `mapstructure:"CLIENT_URL"`

	LocalStorePath     string `mapstructure:"LOCAL_STORE_PATH"`
	LocalStoreInMemory bool   `mapstructure:"LOCAL_STORE_IN_MEMORY"`

	CatalogBaseURL string        `mapstructure:"CATALOG_BASE_URL"`
	CatalogTimeout time.Duration `mapstructure:"CATALOG_TIMEOUT"`

	RedisAddress    string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	ProfileCacheTTL time.Duration `mapstructure:"PROFILE_CACHE_TTL"`

	RabbitMQURL   string `mapstructure:"RABBITMQ_URL"`
	RabbitMQQueue string `mapstructure:"RABBITMQ_QUEUE"`

	SMTPHost   string `mapstructure:"SMTP_HOST"`
	SMTPPort   int    `mapstructure:"SMTP_PORT"`
	SMTPUser   string `mapstructure:"SMTP_USER"`
	SMTPPass   string `mapstructure:"SMTP_PASS"`
	MailSender string `mapstructure:"MAIL_SENDER"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
	// DevAuthEnabled accepts "Bearer dev:<uid>" tokens. Refused in release mode.
	DevAuthEnabled bool `mapstructure:"DEV_AUTH_ENABLED"`
}

var keys = []string{
	"PORT", "GIN_MODE",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "FIREBASE_WEB_API_KEY",
	"CLIENT_URL",
	"LOCAL_STORE_PATH", "LOCAL_STORE_IN_MEMORY",
	"CATALOG_BASE_URL", "CATALOG_TIMEOUT",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "PROFILE_CACHE_TTL",
	"RABBITMQ_URL", "RABBITMQ_QUEUE",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "MAIL_SENDER",
	"METRICS_ENABLED", "DEV_AUTH_ENABLED",
}

var appConfig *Config

// LoadConfig loads configuration from environment variables using Viper.
// Outside release mode a .env file in the working directory is loaded first.
// PATH_CONFIG may point at a YAML file; environment variables win over it.
func LoadConfig() (*Config, error) {
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Println("Warning: Error loading .env file:", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("LOCAL_STORE_PATH", "./data/flavoriz")
	v.SetDefault("CATALOG_TIMEOUT", "5s")
	v.SetDefault("PROFILE_CACHE_TTL", "5m")
	v.SetDefault("RABBITMQ_QUEUE", "flavoriz.plan-events")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_SENDER", "no-reply@flavoriz.app")
	v.SetDefault("METRICS_ENABLED", true)

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if path := os.Getenv("PATH_CONFIG"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	appConfig = &cfg
	return appConfig, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.CatalogTimeout <= 0 {
		return errors.New("CATALOG_TIMEOUT must be positive")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT %d is out of range", c.SMTPPort)
	}
	if c.DevAuthEnabled && c.IsRelease() {
		return errors.New("DEV_AUTH_ENABLED cannot be used with GIN_MODE=release")
	}
	if !c.LocalStoreInMemory && c.LocalStorePath == "" {
		return errors.New("LOCAL_STORE_PATH is required unless LOCAL_STORE_IN_MEMORY is set")
	}
	return nil
}

// IsRelease reports whether Gin runs in release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}

// RemoteStoreConfigured reports whether enough Firebase settings are present to try Firestore.
func (c *Config) RemoteStoreConfigured() bool {
	return c.FirebaseProjectID != ""
}

// GetConfig returns the loaded application configuration.
// It will panic if LoadConfig has not been called successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded; call LoadConfig first")
	}
	return appConfig
}
