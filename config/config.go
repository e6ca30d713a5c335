package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// EXAMPAPER_STORAGE_DRIVER for STORAGE.DRIVER.
const EnvPrefix = "EXAMPAPER"

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver      = errors.New("unknown storage driver")
	ErrMissingDatabaseURL = errors.New("postgres storage requires STORAGE.DATABASE_URL")
	ErrMissingSigningKey  = errors.New("auth requires AUTH.JWT_SIGNING_KEY")
)

// Config holds all application configuration
type Config struct {
	ServerPort      string        `mapstructure:"SERVER_PORT"`
	GinMode         string        `mapstructure:"GIN_MODE"`
	Env             string        `mapstructure:"ENV"` // local, production
	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	SeedFile        string        `mapstructure:"SEED_FILE"` // YAML exam imported into empty storage
	Storage         StorageConfig `mapstructure:"STORAGE"`
	Auth            AuthConfig    `mapstructure:"AUTH"`
	Render          RenderConfig  `mapstructure:"RENDER"`
}

// StorageConfig selects where the exam records live.
type StorageConfig struct {
	Driver         string `mapstructure:"DRIVER"`
	Dir            string `mapstructure:"DIR"` // file driver only
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	MaxConnections int32  `mapstructure:"MAX_CONNECTIONS"`
}

// AuthConfig holds JWT settings. With Enabled false the API is open.
type AuthConfig struct {
	Enabled       bool   `mapstructure:"ENABLED"`
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	Issuer        string `mapstructure:"ISSUER"`
}

// RenderConfig holds renderer settings.
type RenderConfig struct {
	MarginMM float64 `mapstructure:"MARGIN_MM"`
}

// LoadConfig loads configuration from .env, config.yaml and environment
// variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("SERVER_PORT", ":8080")
	v.SetDefault("GIN_MODE", "debug") // gin.DebugMode, gin.ReleaseMode, gin.TestMode
	v.SetDefault("ENV", "local")
	v.SetDefault("READ_TIMEOUT", "15s")
	v.SetDefault("WRITE_TIMEOUT", "60s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("STORAGE.DRIVER", DriverFile)
	v.SetDefault("STORAGE.DIR", "./data")
	v.SetDefault("STORAGE.DATABASE_URL", "")
	v.SetDefault("STORAGE.MAX_CONNECTIONS", 10)
	v.SetDefault("AUTH.ENABLED", false)
	v.SetDefault("AUTH.JWT_SIGNING_KEY", "")
	v.SetDefault("AUTH.ISSUER", "exampaper.local")
	v.SetDefault("RENDER.MARGIN_MM", 15)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	// EXAMPAPER_SERVER_PORT, EXAMPAPER_STORAGE_DRIVER, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	switch c.Storage.Driver {
	case DriverFile:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
	}
	if c.Auth.Enabled && c.Auth.JWTSigningKey == "" {
		return ErrMissingSigningKey
	}
	return nil
}
