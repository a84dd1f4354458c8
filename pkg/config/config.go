// Package config loads sockpuppet configuration from defaults, an optional
// YAML file, and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fallback strategy names, in their default order.
const (
	StrategyHeadless = "headless"
	StrategyStatic   = "static"
	StrategyDriver   = "driver"
	StrategyRender   = "render"
	StrategyCurl     = "curl"
)

// DefaultOrder is the fallback order used when none is configured.
var DefaultOrder = []string{StrategyHeadless, StrategyStatic, StrategyDriver, StrategyRender, StrategyCurl}

// MaxSlots is the number of credential slots read from the environment.
const MaxSlots = 4

// Config is the complete, immutable process configuration.
type Config struct {
	Logging   LoggingConfig  `yaml:"logging"`
	Sessions  SessionsConfig `yaml:"sessions"`
	Upstream  UpstreamConfig `yaml:"upstream"`
	Browser   BrowserConfig  `yaml:"browser"`
	Timeouts  TimeoutConfig  `yaml:"timeouts"`
	Fallback  FallbackConfig `yaml:"fallback"`
	CacheTTL  time.Duration  `yaml:"cache_ttl"`
	CacheDir  string         `yaml:"cache_dir"`
	RateLimit time.Duration  `yaml:"rate_limit"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
}

// SessionsConfig names the credential slots and where their session blobs live.
// Usernames come only from the environment.
type SessionsConfig struct {
	Dir       string   `yaml:"dir"`
	Usernames []string `yaml:"-"`
}

// UpstreamConfig points the fetchers at Instagram, or at a stand-in.
type UpstreamConfig struct {
	APIBase     string `yaml:"api_base"`
	ProfileBase string `yaml:"profile_base"`
	// UserAgent overrides the User-Agent sent by every fetcher. Empty keeps
	// each fetcher's own default.
	UserAgent string `yaml:"user_agent"`
}

// BrowserConfig configures the browser-backed fallback strategies.
type BrowserConfig struct {
	// RemoteURL is a DevTools WebSocket URL of an already running Chrome.
	// Empty launches a local headless Chrome per attempt.
	RemoteURL string `yaml:"remote_url"`
	Bin       string `yaml:"bin"`
	CurlPath  string `yaml:"curl_path"`
}

// TimeoutConfig bounds every network or browser operation.
type TimeoutConfig struct {
	Session  time.Duration `yaml:"session"`
	Primary  time.Duration `yaml:"primary"`
	Headless time.Duration `yaml:"headless"`
	Static   time.Duration `yaml:"static"`
	Driver   time.Duration `yaml:"driver"`
	Render   time.Duration `yaml:"render"`
	Curl     time.Duration `yaml:"curl"`
}

// FallbackConfig orders and filters the fallback strategies.
type FallbackConfig struct {
	Order    []string `yaml:"order"`
	Disabled []string `yaml:"disabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Sessions: SessionsConfig{Dir: "sessions"},
		Upstream: UpstreamConfig{
			APIBase:     "https://i.instagram.com",
			ProfileBase: "https://www.instagram.com",
		},
		Browser: BrowserConfig{CurlPath: "curl"},
		Timeouts: TimeoutConfig{
			Session:  15 * time.Second,
			Primary:  20 * time.Second,
			Headless: 70 * time.Second,
			Static:   20 * time.Second,
			Driver:   30 * time.Second,
			Render:   30 * time.Second,
			Curl:     30 * time.Second,
		},
		Fallback:  FallbackConfig{Order: slices.Clone(DefaultOrder)},
		CacheTTL:  24 * time.Hour,
		RateLimit: 1100 * time.Millisecond,
	}
}

// Load builds the configuration. A non-empty path names a YAML file whose
// values override the defaults; environment variables override both.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Sessions.Usernames = make([]string, MaxSlots)
	for i := range MaxSlots {
		c.Sessions.Usernames[i] = strings.TrimSpace(os.Getenv("IG_USERNAME" + strconv.Itoa(i+1)))
	}

	c.Sessions.Dir = valueOrDefault("SOCKPUPPET_SESSION_DIR", c.Sessions.Dir)
	c.Browser.RemoteURL = valueOrDefault("SOCKPUPPET_CHROME_URL", c.Browser.RemoteURL)
	c.Browser.Bin = valueOrDefault("SOCKPUPPET_CHROME_BIN", c.Browser.Bin)
	c.Browser.CurlPath = valueOrDefault("SOCKPUPPET_CURL", c.Browser.CurlPath)
	c.Upstream.UserAgent = valueOrDefault("SOCKPUPPET_USER_AGENT", c.Upstream.UserAgent)
	c.Logging.Level = valueOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = valueOrDefault("LOG_FORMAT", c.Logging.Format)

	ttl, err := durationOrDefault("SOCKPUPPET_CACHE_TTL", c.CacheTTL)
	if err != nil {
		return err
	}
	c.CacheTTL = ttl
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	for _, name := range c.Fallback.Order {
		if !slices.Contains(DefaultOrder, name) {
			return fmt.Errorf("unknown fallback strategy %q", name)
		}
	}
	for _, d := range []time.Duration{
		c.Timeouts.Session, c.Timeouts.Primary, c.Timeouts.Headless,
		c.Timeouts.Static, c.Timeouts.Driver, c.Timeouts.Render, c.Timeouts.Curl,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts must be positive, got %v", d)
		}
	}
	return nil
}

// Strategies returns the enabled fallback strategy names in order.
func (c *Config) Strategies() []string {
	order := c.Fallback.Order
	if len(order) == 0 {
		order = DefaultOrder
	}
	var out []string
	for _, name := range order {
		if !slices.Contains(c.Fallback.Disabled, name) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Slots returns the configured credential usernames in declaration order.
func (c *Config) Slots() []string {
	return slices.Clone(c.Sessions.Usernames)
}

func valueOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
