package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Lead != 2*time.Second {
		t.Errorf("Lead = %v, want 2s", cfg.Lead)
	}
	if cfg.MinArm != 1*time.Second {
		t.Errorf("MinArm = %v, want 1s", cfg.MinArm)
	}
	if cfg.MinRearm != 500*time.Millisecond {
		t.Errorf("MinRearm = %v, want 500ms", cfg.MinRearm)
	}
	if cfg.PrefetchFraction != 0.8 {
		t.Errorf("PrefetchFraction = %v, want 0.8", cfg.PrefetchFraction)
	}
	if !cfg.AutoAdvance {
		t.Error("AutoAdvance should default on")
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing client id", func(c *Config) { c.ClientID = "" }},
		{"missing client secret", func(c *Config) { c.ClientSecret = "" }},
		{"missing listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"zero lead", func(c *Config) { c.Lead = 0 }},
		{"negative min arm", func(c *Config) { c.MinArm = -time.Second }},
		{"rearm above arm floor", func(c *Config) { c.MinRearm = 2 * time.Second }},
		{"prefetch fraction zero", func(c *Config) { c.PrefetchFraction = 0 }},
		{"prefetch fraction above one", func(c *Config) { c.PrefetchFraction = 1.5 }},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CLIPLOOP_CLIENT_ID", "env-id")
	t.Setenv("CLIPLOOP_CLIENT_SECRET", "env-secret")
	t.Setenv("CLIPLOOP_LISTEN_ADDR", ":9999")
	t.Setenv("CLIPLOOP_LEAD", "3s")
	t.Setenv("CLIPLOOP_PREFETCH_FRACTION", "0.5")
	t.Setenv("CLIPLOOP_AUTO_ADVANCE", "false")
	t.Setenv("CLIPLOOP_HISTORY_PATH", "/tmp/history.json")

	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.ClientID != "env-id" || cfg.ClientSecret != "env-secret" {
		t.Errorf("credentials = %q/%q", cfg.ClientID, cfg.ClientSecret)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Lead != 3*time.Second {
		t.Errorf("Lead = %v, want 3s", cfg.Lead)
	}
	if cfg.PrefetchFraction != 0.5 {
		t.Errorf("PrefetchFraction = %v, want 0.5", cfg.PrefetchFraction)
	}
	if cfg.AutoAdvance {
		t.Error("AutoAdvance should be off")
	}
	if cfg.HistoryPath != "/tmp/history.json" {
		t.Errorf("HistoryPath = %q", cfg.HistoryPath)
	}
}

func TestLoadFromEnvIgnoresMalformed(t *testing.T) {
	t.Setenv("CLIPLOOP_LEAD", "not-a-duration")
	t.Setenv("CLIPLOOP_PREFETCH_FRACTION", "abc")

	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.Lead != 2*time.Second {
		t.Errorf("malformed lead overwrote default: %v", cfg.Lead)
	}
	if cfg.PrefetchFraction != 0.8 {
		t.Errorf("malformed fraction overwrote default: %v", cfg.PrefetchFraction)
	}
}
