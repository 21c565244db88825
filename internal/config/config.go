// Package config provides YAML-based configuration loading for proptalk.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file the CLI reads when --config is not given.
const DefaultPath = "proptalk.yaml"

// Config is the top-level proptalk configuration, loaded from proptalk.yaml.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Map     MapConfig     `yaml:"map"`
	Catalog CatalogConfig `yaml:"catalog"`
	Web     WebConfig     `yaml:"web"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig holds connection settings for the assistant backend.
type BackendConfig struct {
	BaseURL    string  `yaml:"base_url"`
	TimeoutSec int     `yaml:"timeout_sec"` // 0 leaves the transport default in place
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

// MapConfig controls the map panel and how long to wait for the map library.
type MapConfig struct {
	Visible        *bool   `yaml:"visible"`
	FollowResults  *bool   `yaml:"follow_results"`
	PollIntervalMS int     `yaml:"poll_interval_ms"`
	LoadTimeoutMS  int     `yaml:"load_timeout_ms"`
	CenterLat      float64 `yaml:"center_lat"`
	CenterLng      float64 `yaml:"center_lng"`
	Zoom           int     `yaml:"zoom"`
}

// CatalogConfig configures the local property catalog cache.
type CatalogConfig struct {
	Driver      string `yaml:"driver"` // "sqlite" or "mysql"
	DSN         string `yaml:"dsn"`
	RefreshCron string `yaml:"refresh_cron"` // empty disables scheduled refresh
}

// WebConfig configures the browser surface.
type WebConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	Development bool   `yaml:"development"`
}

// Default returns a Config with every default applied, used when no config
// file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8001"
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.RatePerSec == 0 {
		c.Backend.RatePerSec = 5
	}
	if c.Backend.Burst == 0 {
		c.Backend.Burst = 5
	}
	if c.Map.Visible == nil {
		c.Map.Visible = boolPtr(true)
	}
	if c.Map.FollowResults == nil {
		c.Map.FollowResults = boolPtr(true)
	}
	if c.Map.PollIntervalMS == 0 {
		c.Map.PollIntervalMS = 100
	}
	if c.Map.LoadTimeoutMS == 0 {
		c.Map.LoadTimeoutMS = 10000
	}
	if c.Map.CenterLat == 0 && c.Map.CenterLng == 0 {
		c.Map.CenterLat = 12.9141
		c.Map.CenterLng = 74.8560
	}
	if c.Map.Zoom == 0 {
		c.Map.Zoom = 12
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "sqlite"
	}
	if c.Catalog.DSN == "" && c.Catalog.Driver == "sqlite" {
		c.Catalog.DSN = "proptalk.db"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL))
	}
	if c.Backend.TimeoutSec < 0 {
		errs = append(errs, "backend.timeout_sec must not be negative")
	}
	if c.Backend.RatePerSec < 0 {
		errs = append(errs, "backend.rate_per_sec must not be negative")
	}
	if c.Map.PollIntervalMS < 0 || c.Map.LoadTimeoutMS < 0 {
		errs = append(errs, "map poll/load intervals must not be negative")
	}
	if c.Map.LoadTimeoutMS < c.Map.PollIntervalMS {
		errs = append(errs, "map.load_timeout_ms must be at least map.poll_interval_ms")
	}
	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 {
		errs = append(errs, "map.center_lat must be within [-90, 90]")
	}
	if c.Map.CenterLng < -180 || c.Map.CenterLng > 180 {
		errs = append(errs, "map.center_lng must be within [-180, 180]")
	}
	if c.Map.Zoom < 1 || c.Map.Zoom > 21 {
		errs = append(errs, "map.zoom must be within [1, 21]")
	}
	switch c.Catalog.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("catalog.driver %q is not supported (use sqlite or mysql)", c.Catalog.Driver))
	}
	if c.Catalog.DSN == "" {
		errs = append(errs, "catalog.dsn is required")
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		errs = append(errs, "web.port must be within [0, 65535]")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PollInterval returns the map library poll interval.
func (m MapConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalMS) * time.Millisecond
}

// LoadTimeout returns how long to wait for the map library before giving up.
func (m MapConfig) LoadTimeout() time.Duration {
	return time.Duration(m.LoadTimeoutMS) * time.Millisecond
}

// Timeout returns the client-enforced request timeout, or 0 for none.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSec) * time.Second
}

func boolPtr(b bool) *bool { return &b }
