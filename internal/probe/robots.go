package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Gate evaluates robots.txt for probe traffic, with per-host caching. Errors
// fail open so an unreachable robots.txt never blocks a resolution.
type Gate struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	log       *slog.Logger

	mu    sync.RWMutex
	cache map[string]gateEntry
}

type gateEntry struct {
	fetched time.Time
	rules   *robotstxt.RobotsData
}

// NewGate builds a robots gate sharing the prober's HTTP client.
func NewGate(userAgent string, client *http.Client, logger *slog.Logger) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		client:    client,
		userAgent: userAgent,
		ttl:       30 * time.Minute,
		log:       logger.With("component", "robots"),
		cache:     make(map[string]gateEntry),
	}
}

// Allowed reports whether probe traffic may fetch the target URL.
func (g *Gate) Allowed(ctx context.Context, target *url.URL) bool {
	if target == nil || !target.IsAbs() {
		return false
	}

	rules, err := g.rules(ctx, target)
	if err != nil {
		g.log.Debug("robots unavailable, failing open", "host", target.Host, "error", err)
		return true
	}

	group := rules.FindGroup(g.userAgent)
	if group == nil {
		group = rules.FindGroup("*")
		if group == nil {
			return true
		}
	}
	return group.Test(target.Path)
}

func (g *Gate) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	g.mu.RLock()
	entry, ok := g.cache[host]
	if ok && time.Since(entry.fetched) < g.ttl {
		g.mu.RUnlock()
		return entry.rules, nil
	}
	g.mu.RUnlock()

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("robots returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	g.mu.Lock()
	g.cache[host] = gateEntry{fetched: time.Now(), rules: data}
	g.mu.Unlock()

	return data, nil
}

// Purge evicts cached rules for a host.
func (g *Gate) Purge(host string) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return
	}
	g.mu.Lock()
	delete(g.cache, host)
	g.mu.Unlock()
}
