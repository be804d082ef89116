package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/provascan/provascan/internal/analyzer"
	"github.com/provascan/provascan/internal/store"
	"github.com/provascan/provascan/internal/webclient"
)

// Config is the flat, user-facing runtime configuration. It loads from a
// YAML file with environment overrides on top; the typed sub-configs the
// components consume are derived from it.
type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string `yaml:"listen_addr"`

	// StoragePath is the base directory for the database and blob store.
	StoragePath string `yaml:"storage_path"`

	// KeepMediaBytes stores fetched media alongside analysis results.
	KeepMediaBytes bool `yaml:"keep_media_bytes"`

	// Backend selects the fetch backend: "nethttp" or "chromedp".
	Backend string `yaml:"backend"`

	// FetchTimeoutSec bounds one fetch in seconds.
	FetchTimeoutSec int `yaml:"fetch_timeout_sec"`

	// MaxBodyMB is the per-fetch byte ceiling in megabytes.
	MaxBodyMB int `yaml:"max_body_mb"`

	// UserAgent overrides the default fetch User-Agent when non-empty.
	UserAgent string `yaml:"user_agent"`

	// MaxConcurrency bounds parallel analyses during a page scan.
	MaxConcurrency int `yaml:"max_concurrency"`

	// PageScanLimit caps candidates analyzed per page scan.
	PageScanLimit int `yaml:"page_scan_limit"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      "localhost:8080",
		StoragePath:     "~/.config/provascan",
		KeepMediaBytes:  false,
		Backend:         webclient.BackendNetHTTP,
		FetchTimeoutSec: 30,
		MaxBodyMB:       50,
		MaxConcurrency:  4,
		PageScanLimit:   50,
	}
}

// LoadConfig builds a Config from defaults, an optional YAML file, a .env
// file if present, and PROVASCAN_* environment variables, in that order.
// path may be empty to skip the file layer.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	if v := os.Getenv("PROVASCAN_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("PROVASCAN_STORAGE_PATH"); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv("PROVASCAN_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("PROVASCAN_KEEP_MEDIA"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.KeepMediaBytes = b
		}
	}
	if v := os.Getenv("PROVASCAN_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrency = n
		}
	}

	return cfg, nil
}

// WebClientConfig derives the fetch backend configuration.
func (c *Config) WebClientConfig() webclient.Config {
	return webclient.Config{
		Backend:      c.Backend,
		Timeout:      time.Duration(c.FetchTimeoutSec) * time.Second,
		MaxBodyBytes: int64(c.MaxBodyMB) << 20,
		UserAgent:    c.UserAgent,
	}
}

// StoreConfig derives the persistence configuration.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		StoragePath:    c.StoragePath,
		KeepMediaBytes: c.KeepMediaBytes,
	}
}

// AnalyzerConfig derives the orchestration configuration.
func (c *Config) AnalyzerConfig() analyzer.Config {
	return analyzer.Config{
		MaxConcurrency: c.MaxConcurrency,
		PageScanLimit:  c.PageScanLimit,
	}
}
