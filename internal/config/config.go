package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the provider, the consumer and the contract tooling
type Config struct {
	App      AppConfig
	Store    StoreConfig
	DB       DatabaseConfig
	Logger   LoggerConfig
	Consumer ConsumerConfig
	Pact     PactConfig
}

// AppConfig holds configuration for the provider server
type AppConfig struct {
	Environment              string `mapstructure:"APP_ENV"`
	HTTPPort                 string `mapstructure:"HTTP_PORT" validate:"required,numeric"`
	GRPCPort                 string `mapstructure:"GRPC_PORT" validate:"required,numeric"`
	ShutdownTimeoutSeconds   int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" validate:"gte=0"`
	PactStateEndpointEnabled bool   `mapstructure:"PACT_STATE_ENDPOINT_ENABLED"`
}

// StoreConfig selects the user store backend
type StoreConfig struct {
	Driver    string `mapstructure:"STORE_DRIVER" validate:"oneof=memory sqlite postgres"`
	SQLiteDSN string `mapstructure:"SQLITE_DSN" validate:"required_if=Driver sqlite"`
}

// DatabaseConfig holds configuration for the postgres store backend
type DatabaseConfig struct {
	Host            string `mapstructure:"DB_HOST"`
	Port            string `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Name            string `mapstructure:"DB_NAME"`
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS" validate:"gte=0"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME_SECONDS" validate:"gte=0"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	Format           string  `mapstructure:"LOG_FORMAT" validate:"oneof=json console"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS" validate:"gte=0"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME" validate:"required"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// ConsumerConfig holds configuration for the user service client
type ConsumerConfig struct {
	BaseURL string `mapstructure:"USER_SERVICE_BASE_URL" validate:"required,url"`
}

// PactConfig holds configuration for contract publishing and verification
type PactConfig struct {
	BrokerURL           string `mapstructure:"PACT_BROKER_URL" validate:"omitempty,url"`
	BrokerUsername      string `mapstructure:"PACT_BROKER_USERNAME"`
	BrokerPassword      string `mapstructure:"PACT_BROKER_PASSWORD"`
	Dir                 string `mapstructure:"PACT_DIR" validate:"required"`
	ConsumerVersion     string `mapstructure:"PACT_CONSUMER_VERSION"`
	ProviderVersion     string `mapstructure:"PACT_PROVIDER_VERSION"`
	PublishVerification bool   `mapstructure:"PACT_PUBLISH_VERIFICATION"`
	MockPort            int    `mapstructure:"PACT_MOCK_PORT" validate:"gte=0,lte=65535"`
	ProviderBaseURL     string `mapstructure:"PACT_PROVIDER_BASE_URL" validate:"required,url"`
}

// Option customises how configuration is loaded
type Option func(v *viper.Viper) error

// WithFlag binds a command-line flag to a configuration key.
// A flag set on the command line wins over the environment and the config file.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if flag == nil {
			return fmt.Errorf("flag for %s is not defined", key)
		}
		return v.BindPFlag(key, flag)
	}
}

// LoadConfig reads configuration from app.env in path and from environment variables.
func LoadConfig(path string, opts ...Option) (*Config, error) {
	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	// Defaults depend on APP_ENV, so they are set once the file has been read
	setDefaults(v)

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("failed to apply config option: %w", err)
		}
	}

	var config Config

	config.App.Environment = v.GetString("APP_ENV")
	config.App.HTTPPort = v.GetString("HTTP_PORT")
	config.App.GRPCPort = v.GetString("GRPC_PORT")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")
	config.App.PactStateEndpointEnabled = v.GetBool("PACT_STATE_ENDPOINT_ENABLED")

	config.Store.Driver = strings.ToLower(v.GetString("STORE_DRIVER"))
	config.Store.SQLiteDSN = v.GetString("SQLITE_DSN")

	config.DB.Host = v.GetString("DB_HOST")
	config.DB.Port = v.GetString("DB_PORT")
	config.DB.User = v.GetString("DB_USER")
	config.DB.Password = v.GetString("DB_PASSWORD")
	config.DB.Name = v.GetString("DB_NAME")
	config.DB.SSLMode = v.GetString("DB_SSLMODE")
	config.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.DB.ConnMaxLifetime = v.GetInt("DB_CONN_MAX_LIFETIME_SECONDS")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	config.Consumer.BaseURL = v.GetString("USER_SERVICE_BASE_URL")

	config.Pact.BrokerURL = v.GetString("PACT_BROKER_URL")
	config.Pact.BrokerUsername = v.GetString("PACT_BROKER_USERNAME")
	config.Pact.BrokerPassword = v.GetString("PACT_BROKER_PASSWORD")
	config.Pact.Dir = v.GetString("PACT_DIR")
	config.Pact.ConsumerVersion = v.GetString("PACT_CONSUMER_VERSION")
	config.Pact.ProviderVersion = v.GetString("PACT_PROVIDER_VERSION")
	config.Pact.PublishVerification = v.GetBool("PACT_PUBLISH_VERIFICATION")
	config.Pact.MockPort = v.GetInt("PACT_MOCK_PORT")
	config.Pact.ProviderBaseURL = v.GetString("PACT_PROVIDER_BASE_URL")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
	v.SetDefault("PACT_STATE_ENDPOINT_ENABLED", false)

	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("SQLITE_DSN", "file:users.db")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "user_provider")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", 300)

	// Logger defaults
	if v.GetString("APP_ENV") == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "user-provider")
	v.SetDefault("SERVICE_VERSION", "1.0.0")

	v.SetDefault("USER_SERVICE_BASE_URL", "http://localhost:8080")

	v.SetDefault("PACT_BROKER_URL", "http://localhost:9292")
	v.SetDefault("PACT_BROKER_USERNAME", "pact")
	v.SetDefault("PACT_BROKER_PASSWORD", "pact")
	v.SetDefault("PACT_DIR", "./pacts")
	v.SetDefault("PACT_CONSUMER_VERSION", "1.0.0")
	v.SetDefault("PACT_PROVIDER_VERSION", "1.0.0")
	v.SetDefault("PACT_PUBLISH_VERIFICATION", false)
	v.SetDefault("PACT_MOCK_PORT", 0)
	v.SetDefault("PACT_PROVIDER_BASE_URL", "http://localhost:8080")
}

// Validate checks the loaded configuration against its constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// DSN returns the PostgreSQL Data Source Name
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// formatValidationError converts validator.ValidationErrors into a human-readable error message.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "required", "required_if":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a valid URL", field))
		case "numeric":
			messages = append(messages, fmt.Sprintf("%s must be numeric", field))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", field, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(messages, ", "))
}
