package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Session.PageLoadTimeout <= 0 {
		return fmt.Errorf("session.page_load_timeout must be > 0")
	}
	if cfg.Session.OpTimeout <= 0 {
		return fmt.Errorf("session.op_timeout must be > 0")
	}
	if cfg.Session.OpTimeout >= cfg.Session.PageLoadTimeout {
		return fmt.Errorf("session.op_timeout (%s) must be shorter than session.page_load_timeout (%s)",
			cfg.Session.OpTimeout, cfg.Session.PageLoadTimeout)
	}
	if cfg.Session.CreationAttempts < 1 {
		return fmt.Errorf("session.creation_attempts must be >= 1, got %d", cfg.Session.CreationAttempts)
	}

	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.Backoff < 0 {
		return fmt.Errorf("retry.backoff must be >= 0")
	}

	if cfg.Scheduler.RecycleEvery < 1 {
		return fmt.Errorf("scheduler.recycle_every must be >= 1, got %d", cfg.Scheduler.RecycleEvery)
	}
	for _, d := range cfg.Scheduler.Divisions {
		if d != "d1" && d != "d2" && d != "d3" {
			return fmt.Errorf("scheduler.divisions contains unknown division %q", d)
		}
	}
	for _, g := range cfg.Scheduler.Genders {
		if g != "men" && g != "women" {
			return fmt.Errorf("scheduler.genders contains unknown gender %q", g)
		}
	}

	if cfg.Storage.Type != "csv" && cfg.Storage.Type != "mongo" {
		return fmt.Errorf("storage.type must be 'csv' or 'mongo', got %q", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "mongo" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required when storage.type is 'mongo'")
	}

	if cfg.Remote.Enabled {
		if cfg.Remote.BaseURL == "" {
			return fmt.Errorf("remote.base_url is required when remote.enabled is true")
		}
		if _, err := url.Parse(cfg.Remote.BaseURL); err != nil {
			return fmt.Errorf("invalid remote.base_url %q: %w", cfg.Remote.BaseURL, err)
		}
		if cfg.Remote.CacheSize < 1 {
			return fmt.Errorf("remote.cache_size must be >= 1, got %d", cfg.Remote.CacheSize)
		}
	}

	if cfg.Notify.WebhookURL != "" {
		if _, err := url.Parse(cfg.Notify.WebhookURL); err != nil {
			return fmt.Errorf("invalid notify.webhook_url: %w", err)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
