package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Hints     HintsConfig
	Vitrin    VitrinConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BackendConfig holds FindAllEasy backend API configuration
type BackendConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // only "memory"
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// HintsConfig holds the session hint store configuration
type HintsConfig struct {
	DBPath string        `mapstructure:"db_path"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// VitrinConfig holds ranking configuration
type VitrinConfig struct {
	KeywordsFile    string  `mapstructure:"keywords_file"`
	ProductMajority float64 `mapstructure:"product_majority"` // 0 keeps the keyword table's threshold
	Debug           bool    `mapstructure:"debug"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/findalleasy/")

	// FINDALLEASY_BACKEND_BASE_URL -> backend.base_url
	v.SetEnvPrefix("FINDALLEASY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env when present. Variables already set in the
// environment win over the file.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "https://findalleasy.com"})

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout", "12s")
	v.SetDefault("backend.requests_per_second", 10.0)
	v.SetDefault("backend.burst", 20)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("cache.cleanup_interval", "1m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)

	// Hint store defaults
	v.SetDefault("hints.db_path", "vitrin-hints.db")
	v.SetDefault("hints.max_age", "720h") // 30 days

	// Vitrin defaults
	v.SetDefault("vitrin.keywords_file", "")
	v.SetDefault("vitrin.product_majority", 0.0)
	v.SetDefault("vitrin.debug", false)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required (set FINDALLEASY_BACKEND_BASE_URL)")
	}

	if config.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got: %s", config.Backend.Timeout)
	}

	if config.Backend.RequestsPerSecond <= 0 {
		return fmt.Errorf("backend requests_per_second must be positive, got: %v", config.Backend.RequestsPerSecond)
	}

	if config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'memory', got: %s", config.Cache.Type)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("ratelimit per_ip must be positive, got: %d", config.RateLimit.PerIP)
	}

	if m := config.Vitrin.ProductMajority; m < 0 || m > 1 {
		return fmt.Errorf("vitrin product_majority must be 0 (unset) or in (0, 1], got: %v", m)
	}

	if config.Hints.DBPath == "" {
		return fmt.Errorf("hints db_path is required (use \":memory:\" for a throwaway store)")
	}

	return nil
}
