package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Resolver.MarathonTimeout.Duration != 240*time.Second {
		t.Fatalf("unexpected marathon timeout %s", cfg.Resolver.MarathonTimeout)
	}
	if cfg.Cache.Backend != "memory" {
		t.Fatalf("unexpected default cache backend %q", cfg.Cache.Backend)
	}
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	doc := `
logging:
  level: DEBUG
  structured: false
browser:
  headless: false
  user_agents:
    - " Mozilla/5.0 test "
    - ""
resolver:
  max_retries: 5
  marathon_timeout: 3m
  countdown_dwell: 2
  rate_limit_per_host:
    requests: 4
    window: 10s
cache:
  backend: Redis
  redis:
    host: localhost
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level should be normalised, got %q", cfg.Logging.Level)
	}
	if cfg.Resolver.MaxRetries != 5 {
		t.Fatalf("max_retries = %d", cfg.Resolver.MaxRetries)
	}
	if cfg.Resolver.MarathonTimeout.Duration != 3*time.Minute {
		t.Fatalf("marathon_timeout = %s", cfg.Resolver.MarathonTimeout)
	}
	// Bare integers are interpreted as seconds.
	if cfg.Resolver.CountdownDwell.Duration != 2*time.Second {
		t.Fatalf("countdown_dwell = %s", cfg.Resolver.CountdownDwell)
	}
	if !cfg.Resolver.RateLimit.Enabled() {
		t.Fatal("rate limit should be enabled")
	}
	if cfg.Cache.Backend != "redis" {
		t.Fatalf("cache backend = %q", cfg.Cache.Backend)
	}
	if len(cfg.Browser.UserAgents) != 1 || cfg.Browser.UserAgents[0] != "Mozilla/5.0 test" {
		t.Fatalf("user agents not cleaned: %#v", cfg.Browser.UserAgents)
	}
	// Untouched sections keep their defaults.
	if !cfg.Probe.Enabled || cfg.Probe.MaxRedirects != 8 {
		t.Fatalf("probe defaults lost: %+v", cfg.Probe)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("resolver:\n  max_retris: 3\n")); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative retries", func(c *Config) { c.Resolver.MaxRetries = -1 }, "max_retries"},
		{"zero speed factor", func(c *Config) { c.Resolver.SpeedFactor = 0 }, "speed_factor"},
		{"missing click timeout", func(c *Config) { c.Resolver.ClickTimeout = Duration{} }, "click_timeout"},
		{"bad viewport", func(c *Config) { c.Browser.ViewportWidth = 0 }, "viewport"},
		{"zero sessions", func(c *Config) { c.Browser.MaxSessions = 0 }, "max_sessions"},
		{"redis without host", func(c *Config) { c.Cache.Backend = "redis" }, "redis.host"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache backend"},
		{"probe without agent", func(c *Config) { c.Probe.UserAgent = " " }, "user_agent"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadDomainLists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.json")
	doc := `{"ad_domains":["Ads.example","ads.example",""],"download_domains":["mega.nz"],"shortener_domains":["ouo.io","acortame.xyz"],"bot_challenge_domains":["Challenges.Cloudflare.com"]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	lists, err := LoadDomainLists(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lists.AdDomains) != 1 || lists.AdDomains[0] != "ads.example" {
		t.Fatalf("ad domains not deduped: %#v", lists.AdDomains)
	}
	if len(lists.ShortenerDomains) != 2 {
		t.Fatalf("shortener domains: %#v", lists.ShortenerDomains)
	}
	if len(lists.BotChallengeDomains) != 1 || lists.BotChallengeDomains[0] != "challenges.cloudflare.com" {
		t.Fatalf("bot challenge domains not lowered: %#v", lists.BotChallengeDomains)
	}

	missing, err := LoadDomainLists(filepath.Join(dir, "nope.json"))
	if err != nil || missing != nil {
		t.Fatalf("missing file should be (nil, nil), got (%v, %v)", missing, err)
	}
	if empty, err := LoadDomainLists(""); err != nil || empty != nil {
		t.Fatalf("empty path should be (nil, nil), got (%v, %v)", empty, err)
	}
}

func TestBuildLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		if _, err := BuildLogger(LoggingConfig{Level: level, Structured: true}); err != nil {
			t.Fatalf("level %q: %v", level, err)
		}
	}
	if _, err := BuildLogger(LoggingConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	logger, err := BuildLogger(LoggingConfig{Level: "warn"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be suppressed at warn level")
	}
}
