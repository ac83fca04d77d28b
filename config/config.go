// Package config manages application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"playlist2podcast/registry"
)

// DefaultPath is where the configuration is read from when no path is given.
const DefaultPath = "./config.yaml"

// stateFileSuffix names the default state store, kept next to the podcasts
// directory so the static server never publishes it.
const stateFileSuffix = ".playlist2podcast.json"

// DefaultStateFile returns the state store path used when state_file is unset:
// a hidden file beside podcastsPath, e.g. /srv/.podcasts.playlist2podcast.json.
func DefaultStateFile(podcastsPath string) string {
	abs, err := filepath.Abs(podcastsPath)
	if err != nil {
		abs = filepath.Clean(podcastsPath)
	}
	return filepath.Join(filepath.Dir(abs), "."+filepath.Base(abs)+stateFileSuffix)
}

// Config holds all application configuration.
type Config struct {
	// PodcastsPath is the base directory holding one subdirectory per podcast.
	PodcastsPath string `yaml:"podcasts_path" toml:"podcasts_path"`
	// HostBaseURL is the public URL prefix under which PodcastsPath is served.
	// Normalized to end with a single slash.
	HostBaseURL string `yaml:"host_base_url" toml:"host_base_url"`
	// DateAfter excludes items uploaded before this bound (optional).
	DateAfter DateBound `yaml:"dateafter" toml:"dateafter"`
	// Podcasts lists the playlists, either by name or as bare URLs.
	Podcasts Playlists `yaml:"podcasts" toml:"podcasts"`

	// YtdlpPath is the path to the yt-dlp executable (default: "yt-dlp")
	YtdlpPath string `yaml:"ytdlp_path" toml:"ytdlp_path"`
	// YtdlpArgs are extra yt-dlp arguments, e.g. ["--cookies", "cookies.txt"]
	YtdlpArgs []string `yaml:"ytdlp_args" toml:"ytdlp_args"`
	// YtdlpTimeout bounds one yt-dlp invocation; zero means no limit
	YtdlpTimeout time.Duration `yaml:"ytdlp_timeout" toml:"ytdlp_timeout"`
	// MediaExtension is the container extension of downloaded files (default: "webm")
	MediaExtension string `yaml:"media_extension" toml:"media_extension"`
	// Interval is the pause between two sync cycles (default: 24h)
	Interval time.Duration `yaml:"interval" toml:"interval"`
	// LogLevel is a logrus level name (default: "info")
	LogLevel string `yaml:"log_level" toml:"log_level"`
	// StateFile stores per-podcast sync state (default: DefaultStateFile(PodcastsPath))
	StateFile string `yaml:"state_file" toml:"state_file"`
	// MetricsTextfile, when set, receives Prometheus metrics after every cycle
	MetricsTextfile string `yaml:"metrics_textfile" toml:"metrics_textfile"`

	// Mirror optionally copies each published podcast to S3.
	Mirror *MirrorConfig `yaml:"mirror" toml:"mirror"`
}

// MirrorConfig configures the optional S3 mirror.
type MirrorConfig struct {
	Bucket    string `yaml:"bucket" toml:"bucket"`
	Prefix    string `yaml:"prefix" toml:"prefix"`
	Region    string `yaml:"region" toml:"region"`
	Profile   string `yaml:"profile" toml:"profile"`
	PathStyle bool   `yaml:"path_style" toml:"path_style"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		YtdlpPath:      "yt-dlp",
		MediaExtension: "webm",
		Interval:       24 * time.Hour,
		LogLevel:       "info",
	}
}

// Load reads the configuration file at path, applies environment overrides
// and validates the result. Priority: env vars > config file > defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	cfg.loadFromEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile decodes TOML when path ends in .toml and YAML otherwise.
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("P2P_PODCASTS_PATH"); v != "" {
		c.PodcastsPath = v
	}
	if v := os.Getenv("P2P_HOST_BASE_URL"); v != "" {
		c.HostBaseURL = v
	}
	if v := os.Getenv("P2P_DATEAFTER"); v != "" {
		c.DateAfter = DateBound(v)
	}
	if v := os.Getenv("P2P_YTDLP_PATH"); v != "" {
		c.YtdlpPath = v
	}
	if v := os.Getenv("P2P_YTDLP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.YtdlpTimeout = d
		}
	}
	if v := os.Getenv("P2P_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Interval = d
		}
	}
	if v := os.Getenv("P2P_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("P2P_METRICS_TEXTFILE"); v != "" {
		c.MetricsTextfile = v
	}
}

func (c *Config) normalize() {
	if c.HostBaseURL != "" {
		c.HostBaseURL = registry.NormalizeBaseURL(c.HostBaseURL)
	}
	c.MediaExtension = strings.TrimPrefix(strings.ToLower(c.MediaExtension), ".")
	if c.StateFile == "" && c.PodcastsPath != "" {
		c.StateFile = DefaultStateFile(c.PodcastsPath)
	}
	if c.Mirror != nil && c.Mirror.Bucket == "" {
		c.Mirror = nil
	}
}

var dateBoundPattern = regexp.MustCompile(`^(\d{8}|(now|today|yesterday)([+-]\d+(day|week|month|year)s?)?)$`)

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.PodcastsPath == "" {
		return fmt.Errorf("podcasts_path is required")
	}
	if c.HostBaseURL == "" {
		return fmt.Errorf("host_base_url is required")
	}
	if len(c.Podcasts.Entries) == 0 {
		return fmt.Errorf("podcasts must list at least one playlist")
	}
	for i, e := range c.Podcasts.Entries {
		if e.URL == "" {
			return fmt.Errorf("podcasts[%d]: empty playlist URL", i)
		}
		if c.Podcasts.Named && e.Name == "" {
			return fmt.Errorf("podcasts[%d]: empty podcast name", i)
		}
	}
	if c.DateAfter != "" && !dateBoundPattern.MatchString(string(c.DateAfter)) {
		return fmt.Errorf("dateafter %q must be YYYYMMDD or a relative date like now-2weeks", c.DateAfter)
	}
	if c.MediaExtension == "" {
		return fmt.Errorf("media_extension must not be empty")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.YtdlpTimeout < 0 {
		return fmt.Errorf("ytdlp_timeout must be non-negative")
	}
	return nil
}
