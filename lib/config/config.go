// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the bridge.
//
// Configuration is loaded from a single YAML file specified by:
//   - FORGEBRIDGE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the bridge.
type Config struct {
	// LogLevel is the minimum severity emitted on stderr.
	// Values: "debug", "info", "warn", "error". Default: info.
	LogLevel string `yaml:"log_level"`

	// Tracker configures the issue tracker backend. Optional, but at
	// least one backend must be configured.
	Tracker *BackendConfig `yaml:"tracker,omitempty"`

	// Wiki configures the wiki backend. Optional, but at least one
	// backend must be configured.
	Wiki *BackendConfig `yaml:"wiki,omitempty"`
}

// BackendConfig describes one REST backend.
type BackendConfig struct {
	// BaseURL is the site root, e.g. https://example.atlassian.net.
	// Must be HTTPS.
	BaseURL string `yaml:"base_url"`

	// Email is the account identity for basic authentication.
	Email string `yaml:"email"`

	// APIToken is the token paired with Email. Tokens are read from
	// the config file only; they are never taken from the process
	// environment.
	APIToken string `yaml:"api_token"`

	// Deployment selects the API layout flavor ("cloud" or
	// "datacenter"). Default: cloud.
	Deployment string `yaml:"deployment"`

	// CacheTTL is how long read responses stay fresh. Default: 5m.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Default returns the default configuration. These defaults exist to
// give every field a sensible zero-value, not as a fallback - the
// config file is required.
func Default() *Config {
	return &Config{
		LogLevel: "info",
	}
}

// Load loads configuration from the FORGEBRIDGE_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. There are no fallbacks: if FORGEBRIDGE_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("FORGEBRIDGE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("FORGEBRIDGE_CONFIG environment variable not set; " +
			"set it to the path of your forgebridge.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	for _, backend := range []*BackendConfig{c.Tracker, c.Wiki} {
		if backend == nil {
			continue
		}
		if backend.Deployment == "" {
			backend.Deployment = "cloud"
		}
		if backend.CacheTTL == 0 {
			backend.CacheTTL = 5 * time.Minute
		}
	}
}

// Validate checks the configuration for startup errors. A failed
// validation is a configuration mistake the operator must fix; the
// bridge refuses to serve with a partial or insecure setup.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	if c.Tracker == nil && c.Wiki == nil {
		return fmt.Errorf("no backends configured: at least one of tracker or wiki is required")
	}
	if c.Tracker != nil {
		if err := c.Tracker.validate(); err != nil {
			return fmt.Errorf("tracker: %w", err)
		}
	}
	if c.Wiki != nil {
		if err := c.Wiki.validate(); err != nil {
			return fmt.Errorf("wiki: %w", err)
		}
	}
	return nil
}

func (b *BackendConfig) validate() error {
	if b.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	parsed, err := url.Parse(b.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url %q: %w", b.BaseURL, err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("base_url %q: must use https (credentials travel on every request)", b.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base_url %q: missing host", b.BaseURL)
	}
	if b.Email == "" {
		return fmt.Errorf("email is required")
	}
	if b.APIToken == "" {
		return fmt.Errorf("api_token is required")
	}
	if strings.TrimSpace(b.APIToken) != b.APIToken {
		return fmt.Errorf("api_token has leading or trailing whitespace")
	}
	if b.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl %s: must not be negative", b.CacheTTL)
	}
	return nil
}
