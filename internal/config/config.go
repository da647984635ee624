package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LocationConfig is the site used for the solar ephemeris.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`  // degrees, north positive
	Longitude float64 `yaml:"longitude"` // degrees, east positive
	Timezone  string  `yaml:"timezone"`  // IANA name; empty = host zone
}

// SnapshotConfig controls snapshot cadence and which cameras take part.
type SnapshotConfig struct {
	IntervalSec       int      `yaml:"interval_sec"`        // default cadence outside the solar windows
	WindowIntervalSec int      `yaml:"window_interval_sec"` // cadence inside the solar windows
	Cameras           []string `yaml:"cameras"`             // allow-list; empty = all cameras
	MarginPolicy      string   `yaml:"margin_policy"`       // "twilight" or "flat"
	TwilightPadMin    int      `yaml:"twilight_pad_min"`    // pad around twilight for "twilight"
	FlatMarginMin     int      `yaml:"flat_margin_min"`     // margin around sunrise/sunset for "flat"
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
// It is read-only once loaded.
type Config struct {
	Location LocationConfig `yaml:"location"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Snapshot: SnapshotConfig{
			IntervalSec:       180,
			WindowIntervalSec: 30,
			MarginPolicy:      "twilight",
			TwilightPadMin:    60,
			FlatMarginMin:     90,
		},
		Defaults: DefaultsConfig{
			DebugLevel: 1,
		},
	}
}

// ValidateConfigPath checks that path names a .yaml file whose parent
// directory is "configs" and that it contains no traversal.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "..") {
		return fmt.Errorf("config path %q must not contain '..'", path)
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file over the built-in defaults and returns the
// validated configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left untouched; a missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// envOverlay maps the environment variables understood by the bridge.
// Fields are seeded from the current config so unset variables keep it.
type envOverlay struct {
	Latitude     float64  `env:"LATITUDE"`
	Longitude    float64  `env:"LONGITUDE"`
	Timezone     string   `env:"TZ"`
	IntervalSec  int      `env:"SNAPSHOT_INT"`
	Cameras      []string `env:"SNAPSHOT_CAMERAS" envSeparator:","`
	MarginPolicy string   `env:"SNAPSHOT_MARGIN_POLICY"`
	DebugLevel   int      `env:"SNAPSHOT_DEBUG_LEVEL"`
}

// ApplyEnv overlays environment variables on cfg and re-validates it.
func (c *Config) ApplyEnv() error {
	raw := envOverlay{
		Latitude:     c.Location.Latitude,
		Longitude:    c.Location.Longitude,
		Timezone:     c.Location.Timezone,
		IntervalSec:  c.Snapshot.IntervalSec,
		Cameras:      c.Snapshot.Cameras,
		MarginPolicy: c.Snapshot.MarginPolicy,
		DebugLevel:   c.Defaults.DebugLevel,
	}
	if err := ParseEnv(&raw); err != nil {
		return err
	}

	c.Location.Latitude = raw.Latitude
	c.Location.Longitude = raw.Longitude
	c.Location.Timezone = raw.Timezone
	c.Snapshot.IntervalSec = raw.IntervalSec
	c.Snapshot.Cameras = raw.Cameras
	c.Snapshot.MarginPolicy = raw.MarginPolicy
	c.Defaults.DebugLevel = raw.DebugLevel

	c.normalize()
	return c.Validate()
}

// normalize trims free-form values. Camera names keep their case.
func (c *Config) normalize() {
	c.Location.Timezone = strings.TrimSpace(c.Location.Timezone)
	c.Snapshot.MarginPolicy = strings.ToLower(strings.TrimSpace(c.Snapshot.MarginPolicy))

	var cams []string
	for _, name := range c.Snapshot.Cameras {
		if name = strings.TrimSpace(name); name != "" {
			cams = append(cams, name)
		}
	}
	c.Snapshot.Cameras = cams
}

// Validate checks ranges of every field.
func (c *Config) Validate() error {
	lat, lon := c.Location.Latitude, c.Location.Longitude
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("location.latitude must be between -90 and 90, got %g", lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return fmt.Errorf("location.longitude must be between -180 and 180, got %g", lon)
	}
	if c.Snapshot.IntervalSec <= 0 {
		return fmt.Errorf("snapshot.interval_sec must be > 0, got %d", c.Snapshot.IntervalSec)
	}
	if c.Snapshot.WindowIntervalSec <= 0 {
		return fmt.Errorf("snapshot.window_interval_sec must be > 0, got %d", c.Snapshot.WindowIntervalSec)
	}
	switch c.Snapshot.MarginPolicy {
	case "twilight", "flat":
	default:
		return fmt.Errorf("snapshot.margin_policy must be \"twilight\" or \"flat\", got %q", c.Snapshot.MarginPolicy)
	}
	if c.Snapshot.TwilightPadMin <= 0 {
		return fmt.Errorf("snapshot.twilight_pad_min must be > 0, got %d", c.Snapshot.TwilightPadMin)
	}
	if c.Snapshot.FlatMarginMin <= 0 {
		return fmt.Errorf("snapshot.flat_margin_min must be > 0, got %d", c.Snapshot.FlatMarginMin)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// Interval returns the default snapshot interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Snapshot.IntervalSec) * time.Second
}

// WindowInterval returns the snapshot interval inside the solar windows.
func (c *Config) WindowInterval() time.Duration {
	return time.Duration(c.Snapshot.WindowIntervalSec) * time.Second
}

// TwilightPad returns the pad applied by the "twilight" margin policy.
func (c *Config) TwilightPad() time.Duration {
	return time.Duration(c.Snapshot.TwilightPadMin) * time.Minute
}

// FlatMargin returns the margin applied by the "flat" margin policy.
func (c *Config) FlatMargin() time.Duration {
	return time.Duration(c.Snapshot.FlatMarginMin) * time.Minute
}
