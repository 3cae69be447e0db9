package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
)

// HostLimiter keeps resolution traffic polite per index-site host, combining
// a fixed delay with an optional token bucket.
type HostLimiter struct {
	delay       time.Duration
	rateCfg     config.RateLimitConfig
	rateEnabled bool

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter from resolver configuration.
func NewHostLimiter(delay time.Duration, rateCfg config.RateLimitConfig) *HostLimiter {
	limiter := &HostLimiter{delay: delay}
	if delay > 0 {
		limiter.last = make(map[string]time.Time)
	}
	if rateCfg.Enabled() {
		limiter.rateEnabled = true
		limiter.rateCfg = rateCfg
		limiter.limiters = make(map[string]*rate.Limiter)
		if limiter.last == nil {
			limiter.last = make(map[string]time.Time)
		}
	}
	return limiter
}

// Wait blocks until the host's politeness constraints are satisfied.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	if h.delay <= 0 && !h.rateEnabled {
		return nil
	}

	var sleep time.Duration
	var limiter *rate.Limiter
	now := time.Now()

	h.mu.Lock()
	if h.delay > 0 {
		if last, ok := h.last[host]; ok {
			rest := last.Add(h.delay).Sub(now)
			if rest > 0 {
				sleep = rest
			}
		}
	}
	if h.rateEnabled {
		limiter = h.ensureLimiterLocked(host)
	}
	h.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	h.mu.Lock()
	if h.last != nil {
		h.last[host] = time.Now()
	}
	h.mu.Unlock()
	return nil
}

func (h *HostLimiter) ensureLimiterLocked(host string) *rate.Limiter {
	limiter, ok := h.limiters[host]
	if ok {
		return limiter
	}
	interval := h.rateCfg.Window.Duration / time.Duration(h.rateCfg.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	burst := h.rateCfg.Requests
	if burst <= 0 {
		burst = 1
	}
	limiter = rate.NewLimiter(rate.Every(interval), burst)
	h.limiters[host] = limiter
	return limiter
}
