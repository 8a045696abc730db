package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("HOOPSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("hoopsweep")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".hoopsweep"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("session.headless", cfg.Session.Headless)
	v.SetDefault("session.window_size", cfg.Session.WindowSize)
	v.SetDefault("session.stealth", cfg.Session.Stealth)
	v.SetDefault("session.page_load_timeout", cfg.Session.PageLoadTimeout)
	v.SetDefault("session.op_timeout", cfg.Session.OpTimeout)
	v.SetDefault("session.interrupt_grace", cfg.Session.InterruptGrace)
	v.SetDefault("session.creation_attempts", cfg.Session.CreationAttempts)
	v.SetDefault("session.creation_backoff", cfg.Session.CreationBackoff)
	v.SetDefault("session.liveness_selector", cfg.Session.LivenessSelector)

	v.SetDefault("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.SetDefault("retry.backoff", cfg.Retry.Backoff)

	v.SetDefault("scheduler.recycle_every", cfg.Scheduler.RecycleEvery)
	v.SetDefault("scheduler.teardown_between_items", cfg.Scheduler.TeardownBetweenItems)
	v.SetDefault("scheduler.recycle_pause", cfg.Scheduler.RecyclePause)
	v.SetDefault("scheduler.force_rescrape", cfg.Scheduler.ForceRescrape)
	v.SetDefault("scheduler.divisions", cfg.Scheduler.Divisions)
	v.SetDefault("scheduler.genders", cfg.Scheduler.Genders)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)
	v.SetDefault("storage.artifact_path", cfg.Storage.ArtifactPath)

	v.SetDefault("remote.enabled", cfg.Remote.Enabled)
	v.SetDefault("remote.timeout", cfg.Remote.Timeout)
	v.SetDefault("remote.cache_size", cfg.Remote.CacheSize)

	v.SetDefault("notify.timeout", cfg.Notify.Timeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
