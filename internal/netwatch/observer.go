package netwatch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Capture is a URL observed on the wire that plausibly advances the chain.
type Capture struct {
	URL    string
	Source string // "redirect" or "direct"
	At     time.Time
}

// Stats summarises the observer's traffic counters.
type Stats struct {
	Intercepted int64
	Blocked     int64
	Captured    int64
}

// Efficiency reports the blocked/intercepted ratio.
func (s Stats) Efficiency() float64 {
	if s.Intercepted == 0 {
		return 0
	}
	return float64(s.Blocked) / float64(s.Intercepted)
}

// Observer attaches to a browser context, aborts ad requests, and records
// candidate URLs from 3xx responses and direct provider hits. Captures are
// kept in network-arrival order; readers take snapshots.
type Observer struct {
	cls *Classifier
	log *slog.Logger

	mu       sync.Mutex
	captures []Capture
	seen     map[string]struct{}

	intercepted atomic.Int64
	blocked     atomic.Int64

	notify chan struct{}
	once   sync.Once
}

// NewObserver constructs an observer over the given classifier. A nil
// classifier falls back to the built-in dictionaries.
func NewObserver(cls *Classifier, logger *slog.Logger) *Observer {
	if cls == nil {
		cls = NewClassifier(nil, nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		cls:    cls,
		log:    logger.With("component", "netwatch"),
		seen:   make(map[string]struct{}),
		notify: make(chan struct{}),
	}
}

// Classifier exposes the classification dictionaries backing this observer.
func (o *Observer) Classifier() *Classifier {
	return o.cls
}

// IsDownload delegates to the classifier.
func (o *Observer) IsDownload(rawurl string) bool { return o.cls.IsDownload(rawurl) }

// IsShortener delegates to the classifier.
func (o *Observer) IsShortener(rawurl string) bool { return o.cls.IsShortener(rawurl) }

// IsBotChallenge delegates to the classifier.
func (o *Observer) IsBotChallenge(rawurl string) bool { return o.cls.IsBotChallenge(rawurl) }

// Attach subscribes the observer to the context's network events and enables
// request interception. Call once per browser context.
func (o *Observer) Attach(ctx context.Context) error {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go o.routeRequest(ctx, e)
		case *network.EventResponseReceived:
			o.onResponse(e)
		}
	})
	return chromedp.Run(ctx, network.Enable(), fetch.Enable())
}

func (o *Observer) routeRequest(ctx context.Context, ev *fetch.EventRequestPaused) {
	o.intercepted.Add(1)

	c := chromedp.FromContext(ctx)
	if c == nil {
		return
	}
	execCtx := cdp.WithExecutor(ctx, c.Target)

	if o.cls.IsAd(ev.Request.URL) {
		o.blocked.Add(1)
		if err := fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil {
			o.log.Debug("abort request failed", "url", ev.Request.URL, "error", err)
		}
		return
	}
	if err := fetch.ContinueRequest(ev.RequestID).Do(execCtx); err != nil {
		o.log.Debug("continue request failed", "url", ev.Request.URL, "error", err)
	}
}

func (o *Observer) onResponse(ev *network.EventResponseReceived) {
	resp := ev.Response
	if resp == nil {
		return
	}
	if resp.Status >= 300 && resp.Status < 400 {
		if loc := headerValue(resp.Headers, "location"); loc != "" {
			target := resolveLocation(resp.URL, loc)
			if o.cls.IsDownload(target) || o.cls.IsShortener(target) {
				o.record(target, "redirect")
			}
		}
	}
	if o.cls.IsDownload(resp.URL) {
		o.record(resp.URL, "direct")
	}
}

func (o *Observer) record(rawurl, source string) {
	o.mu.Lock()
	if _, ok := o.seen[rawurl]; ok {
		o.mu.Unlock()
		return
	}
	o.seen[rawurl] = struct{}{}
	o.captures = append(o.captures, Capture{URL: rawurl, Source: source, At: time.Now()})
	o.mu.Unlock()

	o.once.Do(func() { close(o.notify) })
	o.log.Debug("captured candidate", "url", rawurl, "source", source)
}

// Snapshot returns a copy of all captures in arrival order.
func (o *Observer) Snapshot() []Capture {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Capture, len(o.captures))
	copy(out, o.captures)
	return out
}

// CapturedSince returns captures recorded at or after the given instant.
func (o *Observer) CapturedSince(t time.Time) []Capture {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Capture
	for _, c := range o.captures {
		if !c.At.Before(t) {
			out = append(out, c)
		}
	}
	return out
}

// BestCaptured returns the most recently captured candidate, which is
// empirically the most specific.
func (o *Observer) BestCaptured() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.captures) == 0 {
		return "", false
	}
	return o.captures[len(o.captures)-1].URL, true
}

// HasCaptures reports whether anything was recorded yet.
func (o *Observer) HasCaptures() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.captures) > 0
}

// Wait blocks until the first capture arrives or the context ends.
func (o *Observer) Wait(ctx context.Context) error {
	select {
	case <-o.notify:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the traffic counters.
func (o *Observer) Stats() Stats {
	o.mu.Lock()
	captured := int64(len(o.captures))
	o.mu.Unlock()
	return Stats{
		Intercepted: o.intercepted.Load(),
		Blocked:     o.blocked.Load(),
		Captured:    captured,
	}
}

func headerValue(headers network.Headers, name string) string {
	for k, v := range headers {
		if !strings.EqualFold(k, name) {
			continue
		}
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// resolveLocation resolves a Location header against the response URL.
func resolveLocation(responseURL, location string) string {
	ref, err := url.Parse(location)
	if err != nil {
		return location
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(responseURL)
	if err != nil {
		return location
	}
	return base.ResolveReference(ref).String()
}
