package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const appName = "cyberbuddy"

// Config holds all application configuration
type Config struct {
	// Backend settings
	BackendURL     string        `yaml:"backend_url" env:"CYBERBUDDY_BACKEND_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"CYBERBUDDY_TIMEOUT"`

	// Local files
	TokenPath string `yaml:"token_path" env:"CYBERBUDDY_TOKEN_PATH"`
	LogPath   string `yaml:"log_path" env:"CYBERBUDDY_LOG_PATH"`

	// Attachments
	MaxAttachmentSize int64 `yaml:"max_attachment_size" env:"CYBERBUDDY_MAX_ATTACHMENT_SIZE"`

	// Feature flags
	ShowSource bool `yaml:"show_source" env:"CYBERBUDDY_SHOW_SOURCE"`
	Markdown   bool `yaml:"markdown" env:"CYBERBUDDY_MARKDOWN"`
	Verbose    bool `yaml:"verbose" env:"CYBERBUDDY_VERBOSE"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		// Backend defaults
		BackendURL:     "http://localhost:5000",
		RequestTimeout: 120 * time.Second,

		// Local file defaults
		TokenPath: filepath.Join(xdg.StateHome, appName, "token"),
		LogPath:   filepath.Join(xdg.StateHome, appName, appName+".log"),

		// Attachment defaults
		MaxAttachmentSize: 2 * 1024 * 1024, // 2 MB

		// Feature flags
		ShowSource: true,
		Markdown:   true,
		Verbose:    false,
	}
}

// DefaultPath returns the location of the config file
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Load reads the config file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.TokenPath == "" {
		return fmt.Errorf("token path cannot be empty")
	}
	if c.MaxAttachmentSize < 1 {
		return fmt.Errorf("max attachment size must be at least 1 byte")
	}
	return nil
}
