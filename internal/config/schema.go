package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Node     NodeConfig     `yaml:"node"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Export   ExportConfig   `yaml:"export"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// NodeConfig locates the entry node's XML-RPC bridge
type NodeConfig struct {
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	Path    string   `yaml:"path"`
	Secure  bool     `yaml:"secure"`  // Route queries through the secure sender
	Timeout Duration `yaml:"timeout"` // Per-query bound
}

// CrawlConfig holds retry limits and scheduling
type CrawlConfig struct {
	NoResponseMax int       `yaml:"no_response_max"`
	RetryMax      int       `yaml:"retry_max"`
	Deadline      *Duration `yaml:"deadline,omitempty"` // nil = no deadline
	Interval      *Duration `yaml:"interval,omitempty"` // nil = run once
}

// LogConfig selects log level and format
type LogConfig struct {
	Level  string `yaml:"level"`  // e.g. "info" or "crawler=debug,info"
	Format string `yaml:"format"` // text or json
}

// DatabaseConfig holds audit history settings
type DatabaseConfig struct {
	Path string `yaml:"path"` // empty = history disabled
}

// ExportConfig controls writing each audit to a file
type ExportConfig struct {
	Path   string `yaml:"path,omitempty"`
	Format string `yaml:"format"` // json or yaml
}

// MetricsConfig controls the Prometheus textfile output
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// durationOrZero returns 0 for a nil pointer
func durationOrZero(d *Duration) time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration()
}
