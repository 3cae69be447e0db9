package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration required to initialise the resolver.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Browser    BrowserConfig    `yaml:"browser"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Probe      ProbeConfig      `yaml:"probe"`
	History    HistoryConfig    `yaml:"history"`
	Cache      CacheConfig      `yaml:"cache"`
	API        APIConfig        `yaml:"api"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// BrowserConfig controls the controlled-browser sessions.
type BrowserConfig struct {
	Headless       bool     `yaml:"headless"`
	Mobile         bool     `yaml:"mobile"`
	ProfileDir     string   `yaml:"profile_dir"`
	UserAgents     []string `yaml:"user_agents"`
	ViewportWidth  int      `yaml:"viewport_width"`
	ViewportHeight int      `yaml:"viewport_height"`
	NavTimeout     Duration `yaml:"nav_timeout"`
	ElementTimeout Duration `yaml:"element_timeout"`
	MaxSessions    int      `yaml:"max_sessions"`
	ScreenshotDir  string   `yaml:"screenshot_dir"`
}

// ResolverConfig tunes the attempt lifecycle and the chain walker.
type ResolverConfig struct {
	MaxRetries      int             `yaml:"max_retries"`
	BackoffBase     Duration        `yaml:"backoff_base"`
	ClickTimeout    Duration        `yaml:"click_timeout"`
	MarathonTimeout Duration        `yaml:"marathon_timeout"`
	CountdownDwell  Duration        `yaml:"countdown_dwell"`
	AdWait          Duration        `yaml:"ad_wait"`
	SpeedFactor     int             `yaml:"speed_factor"`
	PerHostDelay    Duration        `yaml:"per_host_delay"`
	RateLimit       RateLimitConfig `yaml:"rate_limit_per_host"`
	ProbeFirst      bool            `yaml:"probe_first"`
}

// RateLimitConfig applies a token bucket per host.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether per-host rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// ClassifierConfig feeds the URL classification dictionaries. File points at
// an optional JSON document with ad_domains/download_domains/shortener_domains
// keys; inline lists extend whatever the file (or the built-ins) provide.
type ClassifierConfig struct {
	File                string   `yaml:"file"`
	AdDomains           []string `yaml:"ad_domains"`
	DownloadDomains     []string `yaml:"download_domains"`
	ShortenerDomains    []string `yaml:"shortener_domains"`
	BotChallengeDomains []string `yaml:"bot_challenge_domains"`
}

// ProbeConfig controls the cheap HTTP pre-flight.
type ProbeConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Timeout       Duration `yaml:"timeout"`
	MaxBodyBytes  int64    `yaml:"max_body_bytes"`
	RespectRobots bool     `yaml:"respect_robots"`
	UserAgent     string   `yaml:"user_agent"`
	MaxRedirects  int      `yaml:"max_redirects"`
}

// HistoryConfig enables the optional Postgres resolution log.
type HistoryConfig struct {
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

// Enabled reports whether history recording is configured.
func (h HistoryConfig) Enabled() bool {
	return strings.TrimSpace(h.DSN) != ""
}

// CacheConfig selects the resolution-cache backend.
type CacheConfig struct {
	Backend string      `yaml:"backend"` // none, memory, redis
	TTL     Duration    `yaml:"ttl"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig locates the Redis instance used by the redis cache backend.
type RedisConfig struct {
	Host     string   `yaml:"host"`
	Port     string   `yaml:"port"`
	DB       int      `yaml:"db"`
	Password string   `yaml:"password"`
	Key      string   `yaml:"key"`
	Timeout  Duration `yaml:"timeout"`
}

// APIConfig controls the HTTP daemon.
type APIConfig struct {
	Addr    string `yaml:"addr"`
	MaxJobs int    `yaml:"max_jobs"`
}

// DomainLists mirrors the standalone JSON dictionary file.
type DomainLists struct {
	AdDomains           []string `json:"ad_domains"`
	DownloadDomains     []string `json:"download_domains"`
	ShortenerDomains    []string `json:"shortener_domains"`
	BotChallengeDomains []string `json:"bot_challenge_domains"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1366,
			ViewportHeight: 768,
			NavTimeout:     DurationFrom(60 * time.Second),
			ElementTimeout: DurationFrom(15 * time.Second),
			MaxSessions:    2,
		},
		Resolver: ResolverConfig{
			MaxRetries:      2,
			BackoffBase:     DurationFrom(time.Second),
			ClickTimeout:    DurationFrom(30 * time.Second),
			MarathonTimeout: DurationFrom(240 * time.Second),
			CountdownDwell:  DurationFrom(5 * time.Second),
			AdWait:          DurationFrom(45 * time.Second),
			SpeedFactor:     10,
			PerHostDelay:    DurationFrom(250 * time.Millisecond),
			ProbeFirst:      true,
		},
		Probe: ProbeConfig{
			Enabled:       true,
			Timeout:       DurationFrom(10 * time.Second),
			MaxBodyBytes:  2 * 1024 * 1024,
			RespectRobots: true,
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxRedirects:  8,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     DurationFrom(6 * time.Hour),
		},
		API: APIConfig{
			Addr:    ":8080",
			MaxJobs: 4,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDomainLists reads the standalone JSON dictionary file. A missing file is
// not an error; callers fall back to built-in dictionaries.
func LoadDomainLists(path string) (*DomainLists, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read domain lists: %w", err)
	}
	var lists DomainLists
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("decode domain lists: %w", err)
	}
	lists.AdDomains = dedupeLower(lists.AdDomains)
	lists.DownloadDomains = dedupeLower(lists.DownloadDomains)
	lists.ShortenerDomains = dedupeLower(lists.ShortenerDomains)
	lists.BotChallengeDomains = dedupeLower(lists.BotChallengeDomains)
	return &lists, nil
}

// Validate enforces required invariants for the resolver configuration.
func (c Config) Validate() error {
	if c.Resolver.MaxRetries < 0 {
		return fmt.Errorf("resolver.max_retries must be >= 0 (got %d)", c.Resolver.MaxRetries)
	}
	if c.Resolver.SpeedFactor <= 0 {
		return fmt.Errorf("resolver.speed_factor must be > 0 (got %d)", c.Resolver.SpeedFactor)
	}
	if c.Resolver.ClickTimeout.IsZero() {
		return errors.New("resolver.click_timeout must be set")
	}
	if c.Resolver.MarathonTimeout.IsZero() {
		return errors.New("resolver.marathon_timeout must be set")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive (got %dx%d)",
			c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Browser.MaxSessions <= 0 {
		return fmt.Errorf("browser.max_sessions must be > 0 (got %d)", c.Browser.MaxSessions)
	}
	if rl := c.Resolver.RateLimit; rl.Requests < 0 {
		return fmt.Errorf("resolver.rate_limit_per_host.requests must be >= 0 (got %d)", rl.Requests)
	}
	if c.Probe.Enabled {
		if c.Probe.MaxBodyBytes <= 0 {
			return fmt.Errorf("probe.max_body_bytes must be > 0 (got %d)", c.Probe.MaxBodyBytes)
		}
		if strings.TrimSpace(c.Probe.UserAgent) == "" {
			return errors.New("probe.user_agent must be set")
		}
		if c.Probe.MaxRedirects <= 0 {
			return fmt.Errorf("probe.max_redirects must be > 0 (got %d)", c.Probe.MaxRedirects)
		}
	}
	switch c.Cache.Backend {
	case "", "none", "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Host) == "" {
			return errors.New("cache.redis.host must be set for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}
	if c.API.MaxJobs < 0 {
		return fmt.Errorf("api.max_jobs must be >= 0 (got %d)", c.API.MaxJobs)
	}
	return nil
}

func (c *Config) normalise() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Browser.ProfileDir = strings.TrimSpace(c.Browser.ProfileDir)
	c.Browser.ScreenshotDir = strings.TrimSpace(c.Browser.ScreenshotDir)
	c.Probe.UserAgent = strings.TrimSpace(c.Probe.UserAgent)
	c.History.DSN = strings.TrimSpace(c.History.DSN)
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Classifier.File = strings.TrimSpace(c.Classifier.File)

	cleaned := make([]string, 0, len(c.Browser.UserAgents))
	for _, ua := range c.Browser.UserAgents {
		if ua = strings.TrimSpace(ua); ua != "" {
			cleaned = append(cleaned, ua)
		}
	}
	c.Browser.UserAgents = cleaned

	if len(c.Classifier.AdDomains) > 0 {
		c.Classifier.AdDomains = dedupeLower(c.Classifier.AdDomains)
	}
	if len(c.Classifier.DownloadDomains) > 0 {
		c.Classifier.DownloadDomains = dedupeLower(c.Classifier.DownloadDomains)
	}
	if len(c.Classifier.ShortenerDomains) > 0 {
		c.Classifier.ShortenerDomains = dedupeLower(c.Classifier.ShortenerDomains)
	}
	if len(c.Classifier.BotChallengeDomains) > 0 {
		c.Classifier.BotChallengeDomains = dedupeLower(c.Classifier.BotChallengeDomains)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
