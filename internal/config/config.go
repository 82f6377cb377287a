// Package config provides configuration management for ringaudit.
//
// Every setting has a default, so the crawler runs without a config file
// against a node bridge on 127.0.0.1:10000. Command-line flags override values
// loaded from the file.
//
// Config file locations (priority order):
//  1. $RINGAUDIT_CONFIG
//  2. ./ringaudit.yaml
//  3. ~/.config/ringaudit/config.yaml
//  4. /etc/ringaudit/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 10000
	DefaultPath          = "/xm.rem"
	DefaultTimeout       = 10 * time.Second
	DefaultNoResponseMax = 3
	DefaultRetryMax      = 3
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultExportFormat  = "json"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a local node
func DefaultConfig() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Node.Host == "" {
		c.Node.Host = DefaultHost
	}
	if c.Node.Port == 0 {
		c.Node.Port = DefaultPort
	}
	if c.Node.Path == "" {
		c.Node.Path = DefaultPath
	}
	if c.Node.Timeout == 0 {
		c.Node.Timeout = Duration(DefaultTimeout)
	}
	if c.Crawl.NoResponseMax == 0 {
		c.Crawl.NoResponseMax = DefaultNoResponseMax
	}
	if c.Crawl.RetryMax == 0 {
		c.Crawl.RetryMax = DefaultRetryMax
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Export.Format == "" {
		c.Export.Format = DefaultExportFormat
	}
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	if c.Node.Port <= 0 || c.Node.Port > 65535 {
		return fmt.Errorf("%w: node.port %d out of range", ErrInvalidConfig, c.Node.Port)
	}
	if c.Node.Timeout.Duration() <= 0 {
		return fmt.Errorf("%w: node.timeout must be positive", ErrInvalidConfig)
	}
	if c.Crawl.NoResponseMax < 1 {
		return fmt.Errorf("%w: crawl.no_response_max must be at least 1", ErrInvalidConfig)
	}
	if c.Crawl.RetryMax < 1 {
		return fmt.Errorf("%w: crawl.retry_max must be at least 1", ErrInvalidConfig)
	}
	if d := c.Deadline(); d < 0 {
		return fmt.Errorf("%w: crawl.deadline must not be negative", ErrInvalidConfig)
	}
	if d := c.Interval(); d < 0 {
		return fmt.Errorf("%w: crawl.interval must not be negative", ErrInvalidConfig)
	}
	switch c.Export.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: export.format %q (want json or yaml)", ErrInvalidConfig, c.Export.Format)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Deadline returns the per-walk deadline, 0 when unbounded
func (c *Config) Deadline() time.Duration {
	return durationOrZero(c.Crawl.Deadline)
}

// Interval returns the repeat interval, 0 when running once
func (c *Config) Interval() time.Duration {
	return durationOrZero(c.Crawl.Interval)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	transport := "plain"
	if c.Node.Secure {
		transport = "secure"
	}

	summary := fmt.Sprintf("Node: %s:%d%s (%s, timeout %s)\n",
		c.Node.Host, c.Node.Port, c.Node.Path, transport, c.Node.Timeout.Duration())
	summary += fmt.Sprintf("Retries: %d no-response x %d back-off", c.Crawl.NoResponseMax, c.Crawl.RetryMax)
	if d := c.Deadline(); d > 0 {
		summary += fmt.Sprintf(", deadline %s", d)
	}
	if i := c.Interval(); i > 0 {
		summary += fmt.Sprintf(", every %s", i)
	}
	if c.Database.Path != "" {
		summary += fmt.Sprintf("\nHistory: %s", c.Database.Path)
	}
	return summary
}
