// Package config holds the runtime configuration for noted: where the
// persisted store lives, where the live Notification Center database is,
// how often the extraction loop polls, and the tuning knobs for scoring,
// search, and clustering.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"
)

// Config is the full noted configuration. Zero values are filled by
// Default; a YAML file and NOTED_* environment variables override it.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	SourceDB string `yaml:"source_db"`

	PollSeconds   int    `yaml:"poll_seconds"`
	BatchSize     int    `yaml:"batch_size"`
	RetentionDays int    `yaml:"retention_days"`
	CleanupCron   string `yaml:"cleanup_cron"`

	Scoring ScoringConfig `yaml:"scoring"`
	Search  SearchConfig  `yaml:"search"`
	Cluster ClusterConfig `yaml:"cluster"`
}

// ScoringConfig tunes the priority engine thresholds and time decay.
type ScoringConfig struct {
	CriticalThreshold float64 `yaml:"critical_threshold"`
	HighThreshold     float64 `yaml:"high_threshold"`
	MediumThreshold   float64 `yaml:"medium_threshold"`
	DecayHours        int     `yaml:"decay_hours"`
	BoostMinutes      int     `yaml:"boost_minutes"`
}

// SearchConfig tunes result limits and the query result cache.
type SearchConfig struct {
	DefaultLimit    int `yaml:"default_limit"`
	MaxLimit        int `yaml:"max_limit"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	CacheSize       int `yaml:"cache_size"`
}

// ClusterConfig tunes the grouping engine.
type ClusterConfig struct {
	WindowMinutes int `yaml:"window_minutes"`
	MinSize       int `yaml:"min_size"`
}

// Default returns the stock configuration. The data directory is
// ~/.noted and the source path is the macOS Notification Center store.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir:       filepath.Join(home, ".noted"),
		SourceDB:      filepath.Join(home, "Library", "Group Containers", "group.com.apple.usernoted", "db2", "db"),
		PollSeconds:   10,
		BatchSize:     100,
		RetentionDays: 30,
		CleanupCron:   "0 3 * * *",
		Scoring: ScoringConfig{
			CriticalThreshold: 15,
			HighThreshold:     10,
			MediumThreshold:   5,
			DecayHours:        24,
			BoostMinutes:      60,
		},
		Search: SearchConfig{
			DefaultLimit:    50,
			MaxLimit:        1000,
			CacheTTLSeconds: 300,
			CacheSize:       256,
		},
		Cluster: ClusterConfig{
			WindowMinutes: 15,
			MinSize:       2,
		},
	}
}

// Load returns Default merged with the YAML file at path (when path is
// non-empty) and with NOTED_* environment overrides, validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays NOTED_* environment variables. NOTED_UPDATE_INTERVAL
// accepts either a Go duration ("30s") or a bare number of seconds.
func (c *Config) applyEnv() {
	if v := os.Getenv("NOTED_DB"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("NOTED_SOURCE_DB"); v != "" {
		c.SourceDB = v
	}
	if v := os.Getenv("NOTED_UPDATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PollSeconds = int(d.Seconds())
		} else if n, err := strconv.Atoi(v); err == nil {
			c.PollSeconds = n
		}
	}
	if v := os.Getenv("NOTED_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RetentionDays = n
		}
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if c.SourceDB == "" {
		return fmt.Errorf("config: source_db is required")
	}
	if c.PollSeconds <= 0 {
		return fmt.Errorf("config: poll_seconds must be > 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be > 0")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("config: retention_days must be >= 0")
	}
	if c.CleanupCron != "" {
		g := gronx.New()
		if !g.IsValid(c.CleanupCron) {
			return fmt.Errorf("config: cleanup_cron %q is not a valid cron expression", c.CleanupCron)
		}
	}
	s := c.Scoring
	if s.MediumThreshold <= 0 || s.HighThreshold <= s.MediumThreshold || s.CriticalThreshold <= s.HighThreshold {
		return fmt.Errorf("config: scoring thresholds must satisfy 0 < medium < high < critical")
	}
	if s.DecayHours <= 0 {
		return fmt.Errorf("config: scoring.decay_hours must be > 0")
	}
	if s.BoostMinutes <= 0 {
		return fmt.Errorf("config: scoring.boost_minutes must be > 0")
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("config: search.default_limit must be > 0")
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("config: search.max_limit must be >= search.default_limit")
	}
	if c.Search.CacheTTLSeconds > 0 && c.Search.CacheSize <= 0 {
		return fmt.Errorf("config: search.cache_size must be > 0 when the cache is enabled")
	}
	if c.Cluster.WindowMinutes <= 0 {
		return fmt.Errorf("config: cluster.window_minutes must be > 0")
	}
	if c.Cluster.MinSize < 1 {
		return fmt.Errorf("config: cluster.min_size must be >= 1")
	}
	return nil
}

// PollInterval returns the extraction poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// Retention returns the retention window for cleanup.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// CacheTTL returns the search cache entry lifetime. Zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSeconds) * time.Second
}

// ClusterWindow returns the max gap between records in one cluster.
func (c *Config) ClusterWindow() time.Duration {
	return time.Duration(c.Cluster.WindowMinutes) * time.Minute
}

// DecayWindow returns the window after which scores decay to the floor.
func (c *Config) DecayWindow() time.Duration {
	return time.Duration(c.Scoring.DecayHours) * time.Hour
}

// BoostWindow returns the very-recent boost window.
func (c *Config) BoostWindow() time.Duration {
	return time.Duration(c.Scoring.BoostMinutes) * time.Minute
}
