// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like MAPS_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored if not found
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from the usual locations so the binary works when
// started from the repo root, a cmd directory, or a test package.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets from plain env vars when the YAML left
// them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Maps.APIKey == "" {
		if val := os.Getenv("MAPS_API_KEY"); val != "" {
			cfg.Maps.APIKey = val
		}
	}

	if cfg.Webhooks.ReviewURL == "" {
		if val := os.Getenv("REVIEW_WEBHOOK_URL"); val != "" {
			cfg.Webhooks.ReviewURL = val
		}
	}
	if cfg.Webhooks.UserCreateURL == "" {
		if val := os.Getenv("USER_CREATE_WEBHOOK_URL"); val != "" {
			cfg.Webhooks.UserCreateURL = val
		}
	}

	if cfg.Sheet.SpreadsheetID == "" {
		if val := os.Getenv("SPREADSHEET_ID"); val != "" {
			cfg.Sheet.SpreadsheetID = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}

	// Sheet defaults
	if cfg.Sheet.GvizBaseURL == "" {
		cfg.Sheet.GvizBaseURL = "https://docs.google.com"
	}
	if cfg.Sheet.FetchTimeout == 0 {
		cfg.Sheet.FetchTimeout = 10000
	}
	if cfg.Sheet.CacheTTL == 0 {
		cfg.Sheet.CacheTTL = 60000
	}

	// Webhook defaults
	if cfg.Webhooks.MinDelay == 0 {
		cfg.Webhooks.MinDelay = 4000
	}
	if cfg.Webhooks.Timeout == 0 {
		cfg.Webhooks.Timeout = 60000
	}

	// Maps defaults
	if cfg.Maps.WriteReviewBaseURL == "" {
		cfg.Maps.WriteReviewBaseURL = "https://search.google.com/local/writereview"
	}
	if cfg.Maps.PlacesAPIBaseURL == "" {
		cfg.Maps.PlacesAPIBaseURL = "https://maps.googleapis.com/maps/api/place"
	}

	// QR poll defaults: 5s interval, 20 attempts, as the funnel has always run
	if cfg.QR.PollInterval == 0 {
		cfg.QR.PollInterval = 5000
	}
	if cfg.QR.MaxAttempts == 0 {
		cfg.QR.MaxAttempts = 20
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.ShopIndex == "" {
		cfg.Database.Elasticsearch.ShopIndex = "shops"
	}

	// Auth defaults: 24h sessions
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 86400000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Sheet.SpreadsheetID == "" {
		return fmt.Errorf("sheet.spreadsheet_id is required")
	}

	if cfg.Webhooks.ReviewURL == "" {
		return fmt.Errorf("webhooks.review_url is required")
	}
	if cfg.Webhooks.UserCreateURL == "" {
		return fmt.Errorf("webhooks.user_create_url is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
