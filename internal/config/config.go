// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs the pagination walk and identification.
type CrawlerConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	MaxPages  int    `mapstructure:"max_pages"`
}

// FetchConfig configures retrieval retry behavior.
type FetchConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxAttempts      int `mapstructure:"max_attempts"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// ProbeConfig configures the render probe.
type ProbeConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	JSRatio        float64 `mapstructure:"js_ratio"`
	DomainQPS      float64 `mapstructure:"domain_qps"`
}

// PipelineConfig bounds one analysis run.
type PipelineConfig struct {
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds"`
}

// DatabaseConfig selects and configures the report store.
type DatabaseConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// StorageConfig selects and configures the snapshot blob store.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	BaseDir   string `mapstructure:"base_dir"`
}

// PublisherConfig holds metadata for publish-subscribe notifications.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.user_agent", "crawlscope/1.0")
	v.SetDefault("crawler.max_pages", 10)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.backoff_initial_ms", 250)
	v.SetDefault("fetch.backoff_max_ms", 5000)
	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.timeout_seconds", 45)
	v.SetDefault("probe.js_ratio", 2.0)
	v.SetDefault("probe.domain_qps", 1.0)
	v.SetDefault("pipeline.run_timeout_seconds", 120)
	v.SetDefault("database.provider", "sqlite")
	v.SetDefault("database.path", "crawlscope.db")
	v.SetDefault("database.table", "analyses")
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("publisher.provider", "memory")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Probe.JSRatio <= 0 {
		return fmt.Errorf("probe.js_ratio must be > 0")
	}
	switch c.Database.Provider {
	case "sqlite", "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown database.provider %q", c.Database.Provider)
	}
	switch c.Storage.Provider {
	case "memory", "none":
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set for the local provider")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.Publisher.Provider {
	case "memory", "none":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.Topic == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic must be set for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown publisher.provider %q", c.Publisher.Provider)
	}
	return nil
}

// FetchTimeout returns the fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// ProbeTimeout returns the probe stage timeout as a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// RunTimeout returns the global per-run timeout as a duration.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Pipeline.RunTimeoutSeconds) * time.Second
}
