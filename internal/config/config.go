package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig   `yaml:"server"`
	SQLDatabase   DatabaseConfig `yaml:"sql_database"`   // SQLite for config entities
	NoSQLDatabase DatabaseConfig `yaml:"nosql_database"` // MongoDB for sessions, messages, metrics
	Rollup        RollupConfig   `yaml:"rollup"`
	Providers     ProviderConfig `yaml:"providers"`
	LogLevel      string         `yaml:"log_level,omitempty"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client, 0 disables
	RateBurst int     `yaml:"rate_burst"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Provider string            `yaml:"provider"` // sqlite, mongodb
	URI      string            `yaml:"uri"`
	Database string            `yaml:"database"`
	Options  map[string]string `yaml:"options,omitempty"`
}

// RollupConfig drives the daily metrics aggregation schedule.
type RollupConfig struct {
	CronExpr     string `yaml:"cron_expr"`
	BackfillDays int    `yaml:"backfill_days"` // recent days recomputed to catch late-closing sessions
}

// ProviderConfig holds completion engine credentials keyed by provider name.
type ProviderConfig struct {
	OpenAI    ProviderCredentials `yaml:"openai,omitempty"`
	Anthropic ProviderCredentials `yaml:"anthropic,omitempty"`
	Google    ProviderCredentials `yaml:"google,omitempty"`
	Ollama    ProviderCredentials `yaml:"ollama,omitempty"`
}

// ProviderCredentials are the per-provider API settings.
type ProviderCredentials struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 10,
			RateBurst: 20,
		},
		SQLDatabase: DatabaseConfig{
			Provider: "sqlite",
			URI:      "botdeck.db",
			Database: "botdeck",
		},
		NoSQLDatabase: DatabaseConfig{
			Provider: "mongodb",
			URI:      "mongodb://localhost:27017",
			Database: "botdeck",
		},
		Rollup: RollupConfig{
			CronExpr:     "15 0 * * *",
			BackfillDays: 3,
		},
		LogLevel: "INFO",
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".botdeck/config.yaml"
	}
	return filepath.Join(home, ".botdeck", "config.yaml")
}

// Exists checks if config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
