package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"op timeout >= page load timeout", func(c *Config) {
			c.Session.OpTimeout = c.Session.PageLoadTimeout
		}},
		{"zero creation attempts", func(c *Config) {
			c.Session.CreationAttempts = 0
		}},
		{"zero retry attempts", func(c *Config) {
			c.Retry.MaxAttempts = 0
		}},
		{"zero recycle threshold", func(c *Config) {
			c.Scheduler.RecycleEvery = 0
		}},
		{"unknown division", func(c *Config) {
			c.Scheduler.Divisions = []string{"d4"}
		}},
		{"unknown gender", func(c *Config) {
			c.Scheduler.Genders = []string{"mixed"}
		}},
		{"unknown storage type", func(c *Config) {
			c.Storage.Type = "parquet"
		}},
		{"mongo without uri", func(c *Config) {
			c.Storage.Type = "mongo"
			c.Storage.MongoURI = ""
		}},
		{"remote enabled without base url", func(c *Config) {
			c.Remote.Enabled = true
			c.Remote.BaseURL = ""
		}},
		{"bad log level", func(c *Config) {
			c.Logging.Level = "trace"
		}},
		{"bad metrics port", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.PageLoadTimeout != 60*time.Second {
		t.Errorf("PageLoadTimeout = %s, want 60s", cfg.Session.PageLoadTimeout)
	}
	if cfg.Scheduler.RecycleEvery != 20 {
		t.Errorf("RecycleEvery = %d, want 20", cfg.Scheduler.RecycleEvery)
	}
	if cfg.Storage.Type != "csv" {
		t.Errorf("Storage.Type = %q, want csv", cfg.Storage.Type)
	}
}
