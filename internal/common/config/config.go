// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig         `mapstructure:"app"`
	Server       ServerConfig      `mapstructure:"server"`
	Sheet        SheetConfig       `mapstructure:"sheet"`
	Webhooks     WebhookConfig     `mapstructure:"webhooks"`
	Maps         MapsConfig        `mapstructure:"maps"`
	QR           QRConfig          `mapstructure:"qr"`
	Database     DatabaseConfig    `mapstructure:"database"`
	Auth         AuthConfig        `mapstructure:"auth"`
	Integrations IntegrationConfig `mapstructure:"integrations"`
	Logging      LoggingConfig     `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// SheetConfig points at the published spreadsheet the review funnel reads.
type SheetConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	GvizBaseURL   string `mapstructure:"gviz_base_url"`
	CSVExportURL  string `mapstructure:"csv_export_url"`
	FetchTimeout  int    `mapstructure:"fetch_timeout"` // milliseconds
	CacheTTL      int    `mapstructure:"cache_ttl"`     // milliseconds
}

// GvizQueryURL returns the visualization query endpoint for the configured
// sheet, with the response wrapped in the given callback name.
func (s SheetConfig) GvizQueryURL(callback string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=responseHandler:%s",
		s.GvizBaseURL, s.SpreadsheetID, callback)
}

func (s SheetConfig) GetFetchTimeout() time.Duration {
	return GetDuration(s.FetchTimeout)
}

func (s SheetConfig) GetCacheTTL() time.Duration {
	return GetDuration(s.CacheTTL)
}

// ExportCSVURL returns the CSV export endpoint for the configured sheet.
func (s SheetConfig) ExportCSVURL() string {
	if s.CSVExportURL != "" {
		return s.CSVExportURL
	}
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=csv", s.GvizBaseURL, s.SpreadsheetID)
}

// WebhookConfig holds the external review-generation and user-creation
// webhook endpoints.
type WebhookConfig struct {
	ReviewURL     string `mapstructure:"review_url"`
	UserCreateURL string `mapstructure:"user_create_url"`
	MinDelay      int    `mapstructure:"min_delay"` // milliseconds, perceived-latency floor
	Timeout       int    `mapstructure:"timeout"`   // milliseconds
}

func (w WebhookConfig) GetMinDelay() time.Duration {
	return GetDuration(w.MinDelay)
}

func (w WebhookConfig) GetTimeout() time.Duration {
	return GetDuration(w.Timeout)
}

type MapsConfig struct {
	WriteReviewBaseURL string `mapstructure:"write_review_base_url"`
	PlacesAPIBaseURL   string `mapstructure:"places_api_base_url"`
	APIKey             string `mapstructure:"api_key"`
}

// QRConfig controls the bounded QR availability poll.
type QRConfig struct {
	PollInterval int `mapstructure:"poll_interval"` // milliseconds
	MaxAttempts  int `mapstructure:"max_attempts"`
}

func (q QRConfig) GetPollInterval() time.Duration {
	return GetDuration(q.PollInterval)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	ShopIndex  string   `mapstructure:"shop_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds the operator roster and session settings.
type AuthConfig struct {
	SessionTTL int              `mapstructure:"session_ttl"` // milliseconds
	Operators  []OperatorConfig `mapstructure:"operators"`
}

func (a AuthConfig) GetSessionTTL() time.Duration {
	return GetDuration(a.SessionTTL)
}

type OperatorConfig struct {
	UserName string `mapstructure:"user_name"`
	Password string `mapstructure:"password"`
	Role     string `mapstructure:"role"`
	FullName string `mapstructure:"full_name"`
	Email    string `mapstructure:"email"`
	ShopName string `mapstructure:"shop_name"`
	ShopLogo string `mapstructure:"shop_logo"`
}

// IntegrationConfig holds settings for AWS and other external services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
			ToEmail   string `mapstructure:"to_email"`
		} `mapstructure:"ses"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
