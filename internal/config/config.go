package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for hoopsweep.
type Config struct {
	Session   SessionConfig   `mapstructure:"session"   yaml:"session"`
	Retry     RetryConfig     `mapstructure:"retry"     yaml:"retry"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Remote    RemoteConfig    `mapstructure:"remote"    yaml:"remote"`
	Notify    NotifyConfig    `mapstructure:"notify"    yaml:"notify"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// SessionConfig controls the browser session handle.
type SessionConfig struct {
	Headless        bool          `mapstructure:"headless"          yaml:"headless"`
	WindowSize      string        `mapstructure:"window_size"       yaml:"window_size"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	// OpTimeout bounds every wrapped remote operation. Shorter than
	// PageLoadTimeout so hung calls fail fast.
	OpTimeout        time.Duration `mapstructure:"op_timeout"        yaml:"op_timeout"`
	InterruptGrace   time.Duration `mapstructure:"interrupt_grace"   yaml:"interrupt_grace"`
	CreationAttempts int           `mapstructure:"creation_attempts" yaml:"creation_attempts"`
	CreationBackoff  time.Duration `mapstructure:"creation_backoff"  yaml:"creation_backoff"`
	LivenessSelector string        `mapstructure:"liveness_selector" yaml:"liveness_selector"`
}

// RetryConfig controls the retry policy around session operations.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"      yaml:"backoff"`
}

// SchedulerConfig controls the work scheduler.
type SchedulerConfig struct {
	// RecycleEvery recycles the browser session after this many
	// processed games within one work item.
	RecycleEvery int `mapstructure:"recycle_every" yaml:"recycle_every"`
	// TeardownBetweenItems fully destroys and rebuilds the session
	// between work items as an extra isolation boundary.
	TeardownBetweenItems bool          `mapstructure:"teardown_between_items" yaml:"teardown_between_items"`
	RecyclePause         time.Duration `mapstructure:"recycle_pause"          yaml:"recycle_pause"`
	ForceRescrape        bool          `mapstructure:"force_rescrape"         yaml:"force_rescrape"`
	Divisions            []string      `mapstructure:"divisions"              yaml:"divisions"`
	Genders              []string      `mapstructure:"genders"                yaml:"genders"`
}

// StorageConfig controls the output store.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"` // csv or mongo
	OutputDir       string `mapstructure:"output_dir"       yaml:"output_dir"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	ArtifactPath    string `mapstructure:"artifact_path"    yaml:"artifact_path"`
}

// RemoteConfig controls the optional remote-mirror existence pre-check.
type RemoteConfig struct {
	Enabled   bool          `mapstructure:"enabled"    yaml:"enabled"`
	BaseURL   string        `mapstructure:"base_url"   yaml:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"`
	CacheSize int           `mapstructure:"cache_size" yaml:"cache_size"`
}

// NotifyConfig controls the notification sink.
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" yaml:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Headless:         true,
			WindowSize:       "1920,1080",
			Stealth:          true,
			PageLoadTimeout:  60 * time.Second,
			OpTimeout:        30 * time.Second,
			InterruptGrace:   5 * time.Second,
			CreationAttempts: 3,
			CreationBackoff:  2 * time.Second,
			LivenessSelector: "body",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff:     2 * time.Second,
		},
		Scheduler: SchedulerConfig{
			RecycleEvery:         20,
			TeardownBetweenItems: true,
			RecyclePause:         3 * time.Second,
			Divisions:            []string{"d1", "d2", "d3"},
			Genders:              []string{"men", "women"},
		},
		Storage: StorageConfig{
			Type:            "csv",
			OutputDir:       "./scraped_data",
			MongoDatabase:   "hoopsweep",
			MongoCollection: "games",
			ArtifactPath:    "./discovery/game_links_mapping.json",
		},
		Remote: RemoteConfig{
			Enabled:   false,
			Timeout:   10 * time.Second,
			CacheSize: 512,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
