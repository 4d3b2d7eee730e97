// Package config manages application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration for the clip session daemon.
type Config struct {
	// ClientID is the Twitch application client id.
	ClientID string `json:"client_id"`
	// ClientSecret is the Twitch application client secret.
	ClientSecret string `json:"client_secret"`
	// HelixURL overrides the Helix API base URL (tests, proxies).
	HelixURL string `json:"helix_url"`
	// AuthURL overrides the OAuth token endpoint.
	AuthURL string `json:"auth_url"`

	// ListenAddr is the HTTP bridge bind address.
	ListenAddr string `json:"listen_addr"`
	// EmbedParent is the hostname passed to the clip embed as the parent
	// parameter; the embed refuses to load without a matching one.
	EmbedParent string `json:"embed_parent"`

	// Lead is subtracted from the nominal clip duration when arming the
	// advancement deadline.
	Lead time.Duration `json:"lead"`
	// MinArm is the floor for a freshly armed deadline.
	MinArm time.Duration `json:"min_arm"`
	// MinRearm is the floor for deadlines re-derived from observed
	// playback positions.
	MinRearm time.Duration `json:"min_rearm"`

	// PrefetchFraction is the queue-position fraction that triggers a
	// background page fetch.
	PrefetchFraction float64 `json:"prefetch_fraction"`
	// FetchTimeout bounds each catalog request.
	FetchTimeout time.Duration `json:"fetch_timeout"`
	// AutoAdvance is the initial auto-advance setting.
	AutoAdvance bool `json:"auto_advance"`

	// HistoryPath is the watch-history JSON file; empty disables history.
	HistoryPath string `json:"history_path"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       ":8750",
		EmbedParent:      "localhost",
		Lead:             2 * time.Second,
		MinArm:           1 * time.Second,
		MinRearm:         500 * time.Millisecond,
		PrefetchFraction: 0.8,
		FetchTimeout:     20 * time.Second,
		AutoAdvance:      true,
	}
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults. A .env file in the working
// directory, when present, populates the environment first.
func Load() (*Config, error) {
	// Optional; absence is not an error.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	// Try to load from config file
	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// Override with environment variables
	cfg.loadFromEnv()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from cliploop.json in current directory or home directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"cliploop.json",
		filepath.Join(os.Getenv("HOME"), ".config", "cliploop", "cliploop.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("CLIPLOOP_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv("CLIPLOOP_CLIENT_SECRET"); v != "" {
		c.ClientSecret = v
	}
	if v := os.Getenv("CLIPLOOP_HELIX_URL"); v != "" {
		c.HelixURL = v
	}
	if v := os.Getenv("CLIPLOOP_AUTH_URL"); v != "" {
		c.AuthURL = v
	}
	if v := os.Getenv("CLIPLOOP_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("CLIPLOOP_EMBED_PARENT"); v != "" {
		c.EmbedParent = v
	}
	if v := os.Getenv("CLIPLOOP_LEAD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Lead = d
		}
	}
	if v := os.Getenv("CLIPLOOP_MIN_ARM"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MinArm = d
		}
	}
	if v := os.Getenv("CLIPLOOP_MIN_REARM"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MinRearm = d
		}
	}
	if v := os.Getenv("CLIPLOOP_PREFETCH_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.PrefetchFraction = f
		}
	}
	if v := os.Getenv("CLIPLOOP_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.FetchTimeout = d
		}
	}
	if v := os.Getenv("CLIPLOOP_AUTO_ADVANCE"); v != "" {
		c.AutoAdvance = v == "true" || v == "1"
	}
	if v := os.Getenv("CLIPLOOP_HISTORY_PATH"); v != "" {
		c.HistoryPath = v
	}
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.Lead <= 0 {
		return fmt.Errorf("lead must be positive")
	}
	if c.MinArm <= 0 {
		return fmt.Errorf("min_arm must be positive")
	}
	if c.MinRearm <= 0 {
		return fmt.Errorf("min_rearm must be positive")
	}
	if c.MinRearm > c.MinArm {
		return fmt.Errorf("min_rearm must be <= min_arm")
	}
	if c.PrefetchFraction <= 0 || c.PrefetchFraction > 1 {
		return fmt.Errorf("prefetch_fraction must be in (0, 1]")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	return nil
}
