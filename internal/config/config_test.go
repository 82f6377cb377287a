package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Node.Port != DefaultPort {
		t.Errorf("Node.Port = %d, want %d", cfg.Node.Port, DefaultPort)
	}
	if cfg.Node.Path != "/xm.rem" {
		t.Errorf("Node.Path = %q, want /xm.rem", cfg.Node.Path)
	}
	if cfg.Crawl.NoResponseMax != 3 || cfg.Crawl.RetryMax != 3 {
		t.Errorf("retry limits = %d/%d, want 3/3", cfg.Crawl.NoResponseMax, cfg.Crawl.RetryMax)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Database.Path = %q, history should be off by default", cfg.Database.Path)
	}
	if cfg.Deadline() != 0 || cfg.Interval() != 0 {
		t.Error("deadline and interval should be unset by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ringaudit.yaml")
	content := `
node:
  port: 15000
  secure: true
  timeout: 3s
crawl:
  retry_max: 5
  deadline: 2m
  interval: 10m
database:
  path: /var/lib/ringaudit/history.db
export:
  format: yaml
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, loadedPath, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loadedPath != path {
		t.Errorf("path = %q, want %q", loadedPath, path)
	}
	if cfg.Node.Port != 15000 || !cfg.Node.Secure {
		t.Errorf("node = %+v", cfg.Node)
	}
	if cfg.Node.Timeout.Duration() != 3*time.Second {
		t.Errorf("Timeout = %s, want 3s", cfg.Node.Timeout.Duration())
	}
	if cfg.Node.Host != DefaultHost {
		t.Errorf("Host = %q, default should fill in", cfg.Node.Host)
	}
	if cfg.Crawl.RetryMax != 5 || cfg.Crawl.NoResponseMax != 3 {
		t.Errorf("crawl = %+v", cfg.Crawl)
	}
	if cfg.Deadline() != 2*time.Minute || cfg.Interval() != 10*time.Minute {
		t.Errorf("deadline/interval = %s/%s", cfg.Deadline(), cfg.Interval())
	}
	if cfg.Export.Format != "yaml" {
		t.Errorf("Export.Format = %q", cfg.Export.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFromPathErrors(t *testing.T) {
	if _, _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("node:\n  timeout: soon\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Node.Port = 12345
	interval := Duration(time.Hour)
	cfg.Crawl.Interval = &interval

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Node.Port != 12345 {
		t.Errorf("Port = %d, want 12345", loaded.Node.Port)
	}
	if loaded.Interval() != time.Hour {
		t.Errorf("Interval = %s, want 1h", loaded.Interval())
	}
}

func TestValidate(t *testing.T) {
	negative := Duration(-time.Second)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Node.Port = 0 }},
		{"port too high", func(c *Config) { c.Node.Port = 70000 }},
		{"timeout", func(c *Config) { c.Node.Timeout = 0 }},
		{"no response max", func(c *Config) { c.Crawl.NoResponseMax = 0 }},
		{"retry max", func(c *Config) { c.Crawl.RetryMax = -1 }},
		{"deadline", func(c *Config) { c.Crawl.Deadline = &negative }},
		{"interval", func(c *Config) { c.Crawl.Interval = &negative }},
		{"export format", func(c *Config) { c.Export.Format = "xml" }},
		{"log format", func(c *Config) { c.Log.Format = "logfmt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestFindConfigPathEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvConfigPath, path)
	if got := FindConfigPath(); got != path {
		t.Errorf("FindConfigPath() = %q, want %q", got, path)
	}
}

func TestFindConfigPathXDG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigDirName, "config.yaml")
	if err := EnsureConfigDir(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(t.TempDir())

	if got := FindConfigPath(); got != path {
		t.Errorf("FindConfigPath() = %q, want %q", got, path)
	}
}

func TestSummary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Node.Secure = true
	cfg.Database.Path = "history.db"

	summary := cfg.Summary()
	for _, want := range []string{"127.0.0.1:10000/xm.rem", "secure", "3 no-response x 3 back-off", "history.db"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() missing %q:\n%s", want, summary)
		}
	}
}
