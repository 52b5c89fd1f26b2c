package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// WhatsAppConfig holds WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	VerifyToken   string `yaml:"verify_token" envconfig:"VERIFY_TOKEN"`
	AccessToken   string `yaml:"access_token" envconfig:"META_ACCESS_TOKEN"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"META_PHONE_NUMBER_ID"`
	APIBaseURL    string `yaml:"api_base_url" envconfig:"WHATSAPP_API_BASE_URL"`
	// SendTimeoutSeconds bounds a single outbound send attempt; 0 -> default
	SendTimeoutSeconds int `yaml:"send_timeout_seconds" envconfig:"WHATSAPP_SEND_TIMEOUT_SECONDS"`
}

// ServerConfig specifies webhook HTTP server settings.
type ServerConfig struct {
	Listen             string `yaml:"listen" envconfig:"SERVER_LISTEN"`
	Port               int    `yaml:"port" envconfig:"PORT"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" envconfig:"RATE_LIMIT_PER_MINUTE"`
}

// BackupConfig controls the snapshot rotation service.
type BackupConfig struct {
	Dir             string `yaml:"dir" envconfig:"BACKUP_DIR"`
	IntervalMinutes int    `yaml:"interval_minutes" envconfig:"BACKUP_INTERVAL_MINUTES"`
	RemoteEnabled   bool   `yaml:"remote_enabled" envconfig:"BACKUP_REMOTE_ENABLED"`
	RemoteName      string `yaml:"remote_name" envconfig:"BACKUP_REMOTE_NAME"`
	RemoteBranch    string `yaml:"remote_branch" envconfig:"BACKUP_REMOTE_BRANCH"`
	// PushTimeoutSeconds bounds the git stage/commit/push sequence; 0 -> default
	PushTimeoutSeconds int `yaml:"push_timeout_seconds" envconfig:"BACKUP_PUSH_TIMEOUT_SECONDS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Server   ServerConfig   `yaml:"server"`
	Backup   BackupConfig   `yaml:"backup"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.WhatsApp.VerifyToken) == "" {
		cfg.WhatsApp.VerifyToken = "refurbyte_verify"
	}
	if strings.TrimSpace(cfg.WhatsApp.AccessToken) == "" {
		return fmt.Errorf("whatsapp.access_token is required")
	}
	if strings.TrimSpace(cfg.WhatsApp.PhoneNumberID) == "" {
		return fmt.Errorf("whatsapp.phone_number_id is required")
	}
	if strings.TrimSpace(cfg.WhatsApp.APIBaseURL) == "" {
		cfg.WhatsApp.APIBaseURL = "https://graph.facebook.com/v17.0"
	}
	cfg.WhatsApp.APIBaseURL = strings.TrimRight(cfg.WhatsApp.APIBaseURL, "/")
	if cfg.WhatsApp.SendTimeoutSeconds < 0 {
		return fmt.Errorf("whatsapp.send_timeout_seconds must be >= 0")
	}
	if cfg.WhatsApp.SendTimeoutSeconds == 0 {
		cfg.WhatsApp.SendTimeoutSeconds = 10
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rate_limit_per_minute must be >= 0")
	}
	if cfg.Server.RateLimitPerMinute == 0 {
		cfg.Server.RateLimitPerMinute = 20
	}

	if strings.TrimSpace(cfg.Backup.Dir) == "" {
		cfg.Backup.Dir = "backups"
	}
	if cfg.Backup.IntervalMinutes < 0 {
		return fmt.Errorf("backup.interval_minutes must be >= 0")
	}
	if cfg.Backup.IntervalMinutes == 0 {
		cfg.Backup.IntervalMinutes = 60
	}
	if strings.TrimSpace(cfg.Backup.RemoteName) == "" {
		cfg.Backup.RemoteName = "origin"
	}
	if strings.TrimSpace(cfg.Backup.RemoteBranch) == "" {
		cfg.Backup.RemoteBranch = "main"
	}
	if cfg.Backup.PushTimeoutSeconds <= 0 {
		cfg.Backup.PushTimeoutSeconds = 60
	}

	return nil
}
