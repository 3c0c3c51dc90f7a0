package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Extensions ExtensionConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8600"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StorageConfig holds persistence paths.
type StorageConfig struct {
	Path       string `envconfig:"STORAGE_PATH" default:"./data"`
	Staging    string `envconfig:"STAGING_PATH" default:"./data/staging"`
	PolicyFile string `envconfig:"POLICY_FILE" default:""`
}

// ExtensionConfig holds extension subsystem defaults.
type ExtensionConfig struct {
	IsolationLevel string `envconfig:"EXT_ISOLATION_LEVEL" default:"standard"`
	RiskTolerance  string `envconfig:"EXT_RISK_TOLERANCE" default:"medium"`
	AutoLoad       bool   `envconfig:"EXT_AUTO_LOAD" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Policy is the optional YAML policy file shape. Override markers use the
// persisted form: "perm" allows, "!perm" denies.
type Policy struct {
	PermissionOverrides   map[string][]string `yaml:"permission_overrides"`
	IsolationRestrictions map[string][]string `yaml:"isolation_restrictions"`
	DefaultIsolationLevel string              `yaml:"default_isolation_level"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8600",
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			Path:    "./data",
			Staging: "./data/staging",
		},
		Extensions: ExtensionConfig{
			IsolationLevel: "standard",
			RiskTolerance:  "medium",
			AutoLoad:       true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// LoadPolicy reads the YAML policy file. A missing path returns an empty
// policy rather than an error so the file stays optional.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return &Policy{}, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Policy{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	return &policy, nil
}
