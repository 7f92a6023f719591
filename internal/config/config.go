package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// SourcesConfig lists the static documents the site is built from.
// Each value is either an http(s) URL or a local file path.
type SourcesConfig struct {
	Events  string `yaml:"events" json:"events"`
	Team    string `yaml:"team" json:"team"`
	Formats string `yaml:"formats" json:"formats"`

	// CacheBust appends ?v=<unix ms> to http(s) document URLs so that
	// intermediate caches never serve a stale document.
	CacheBust bool `yaml:"cache_bust" json:"cache_bust"`
}

// TimeServiceConfig describes the remote time service used for "now".
type TimeServiceConfig struct {
	// URL returns JSON with a utc_datetime field. Empty means local clock only.
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig bounds per-client request rate on the API endpoints.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second" json:"per_second"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// CaptureConfig holds defaults for headless share-preview capture.
type CaptureConfig struct {
	Width   int           `yaml:"width" json:"width"`
	Height  int           `yaml:"height" json:"height"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// PublicURL is the externally visible base URL, used for share links
	// and QR codes (e.g. "https://events.example.org/").
	PublicURL string `yaml:"public_url" json:"public_url"`

	// Timezone is the IANA timezone used for date/time display strings.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	TimeService TimeServiceConfig `yaml:"time_service" json:"time_service"`
	Sources     SourcesConfig     `yaml:"sources" json:"sources"`

	// FetchTimeout bounds each document fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`

	// Reload is a cron-style schedule (e.g. "*/30 * * * *") for rebuilding
	// the site from its documents. Empty disables periodic reloads.
	Reload string `yaml:"reload" json:"reload"`

	// HomeUpcomingLimit caps the number of upcoming events on the home page.
	HomeUpcomingLimit int `yaml:"home_upcoming_limit" json:"home_upcoming_limit"`

	RateLimit   RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	CORSOrigins []string        `yaml:"cors_origins" json:"cors_origins"`
	Capture     CaptureConfig   `yaml:"capture" json:"capture"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultPublicURL    = "http://127.0.0.1:8080/"
	defaultTimezone     = "America/New_York"
	defaultTimeService  = "https://worldtimeapi.org/api/ip"
	defaultTimeTimeout  = 5 * time.Second
	defaultFetchTimeout = 15 * time.Second
	defaultHomeLimit    = 3
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    defaultListen,
		PublicURL: defaultPublicURL,
		Timezone:  defaultTimezone,
		LogLevel:  "info",
		TimeService: TimeServiceConfig{
			URL:     defaultTimeService,
			Timeout: defaultTimeTimeout,
		},
		Sources: SourcesConfig{
			Events:    "./data/events.json",
			Team:      "./data/team.json",
			Formats:   "./data/event-formats.json",
			CacheBust: true,
		},
		FetchTimeout:      defaultFetchTimeout,
		Reload:            "*/30 * * * *",
		HomeUpcomingLimit: defaultHomeLimit,
		RateLimit:         RateLimitConfig{PerSecond: 10, Burst: 20},
		CORSOrigins:       []string{"*"},
		Capture:           CaptureConfig{Width: 1200, Height: 630, Timeout: 30 * time.Second},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://" + c.Listen + "/"
	}
	if !strings.HasSuffix(c.PublicURL, "/") {
		c.PublicURL += "/"
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.TimeService.Timeout <= 0 {
		c.TimeService.Timeout = defaultTimeTimeout
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.HomeUpcomingLimit <= 0 {
		c.HomeUpcomingLimit = defaultHomeLimit
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{"*"}
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1200
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 630
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = 30 * time.Second
	}
}

// Validate reports configuration values that cannot be repaired by Normalize.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Reload != "" {
		if _, err := cron.ParseStandard(c.Reload); err != nil {
			return fmt.Errorf("config: invalid reload schedule %q: %w", c.Reload, err)
		}
	}
	if strings.TrimSpace(c.Sources.Events) == "" {
		return errors.New("config: sources.events is empty")
	}
	return nil
}

// ApplyEnv overrides file values with EVENTSITE_* environment variables.
// Unparseable numeric values are ignored.
func (c *Config) ApplyEnv() {
	setStr := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setStr("EVENTSITE_LISTEN", &c.Listen)
	setStr("EVENTSITE_PUBLIC_URL", &c.PublicURL)
	setStr("EVENTSITE_TIMEZONE", &c.Timezone)
	setStr("EVENTSITE_LOG_LEVEL", &c.LogLevel)
	setStr("EVENTSITE_TIME_SERVICE_URL", &c.TimeService.URL)
	setStr("EVENTSITE_EVENTS_SOURCE", &c.Sources.Events)
	setStr("EVENTSITE_TEAM_SOURCE", &c.Sources.Team)
	setStr("EVENTSITE_FORMATS_SOURCE", &c.Sources.Formats)
	setStr("EVENTSITE_RELOAD", &c.Reload)

	if v := os.Getenv("EVENTSITE_HOME_UPCOMING_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HomeUpcomingLimit = n
		}
	}
	if v := os.Getenv("EVENTSITE_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.FetchTimeout = d
		}
	}
}

// Location returns the display timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The parent directory is created with 0700, the YAML is written to a temp
// file in the same directory and renamed over the target, and the final file
// ends up with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventsite-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
