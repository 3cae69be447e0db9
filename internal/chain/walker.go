package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

const (
	// DefaultMaxDepth bounds how many hops a shortener chain may take.
	DefaultMaxDepth = 8
	// DefaultMaxAttempts bounds click attempts per hop. The counter resets
	// whenever the chain advances.
	DefaultMaxAttempts = 5
)

// Hosts whose gate pages run a long visible countdown before the button
// appears.
var countdownHosts = []string{
	"neworldtravel.",
	"acortame.",
}

// Page drives one browser tab. The concrete implementation sits on chromedp;
// tests substitute a scripted fake.
type Page interface {
	Navigate(ctx context.Context, rawurl, referrer string, timeout time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Prepare(ctx context.Context) error
	WaitAndClick(ctx context.Context, timeout time.Duration) (bool, error)
	ReduceCountdowns(ctx context.Context) (int, error)
}

// Signals exposes the network captures and link heuristics the walker feeds
// on.
type Signals interface {
	CapturedSince(t time.Time) []netwatch.Capture
	IsDownload(rawurl string) bool
	IsShortener(rawurl string) bool
	IsBotChallenge(rawurl string) bool
	AnalyzeDOMLinks(html string, base *url.URL) []netwatch.DOMLink
}

// Options tune a walker. Zero values fall back to defaults.
type Options struct {
	MaxDepth     int
	MaxAttempts  int
	NavTimeout   time.Duration
	ClickTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 45 * time.Second
	}
	if o.ClickTimeout <= 0 {
		o.ClickTimeout = 30 * time.Second
	}
	return o
}

// Result is the outcome of a chain walk. Terminal marks whether the final URL
// sits on a known provider; a false value means the chain stalled on a page
// the walker could not leave, which callers may still inspect.
type Result struct {
	FinalURL string
	Chain    []string
	Hops     int
	Terminal bool
}

// Walker follows a shortener chain hop by hop until a provider URL appears or
// a bound trips.
type Walker struct {
	page    Page
	signals Signals
	opts    Options
	log     *slog.Logger
}

// NewWalker builds a walker over the given page and signal sources.
func NewWalker(page Page, signals Signals, opts Options, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		page:    page,
		signals: signals,
		opts:    opts.withDefaults(),
		log:     logger.With("component", "chain"),
	}
}

// Walk drives the chain starting at start. The referrer is sent on the first
// navigation only; later hops carry the organic referrer the browser builds
// up itself.
func (w *Walker) Walk(ctx context.Context, start, referrer string) (*Result, error) {
	visited := newVisitedSet()
	var chain []string
	current := strings.TrimSpace(start)
	if current == "" {
		return nil, types.Fail(types.FailInvalidInput, start, errors.New("empty chain start"))
	}

	for depth := 0; ; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, w.ctxFailure(ctx, current, err)
		}
		if depth >= w.opts.MaxDepth {
			return nil, types.Fail(types.FailDepthExceeded, start,
				fmt.Errorf("chain exceeded %d hops at %s", w.opts.MaxDepth, current))
		}
		if visited.Seen(current) {
			return nil, types.Fail(types.FailChainLoop, start,
				fmt.Errorf("chain revisited %s", current))
		}
		visited.Add(current)
		chain = append(chain, current)

		if w.signals.IsBotChallenge(current) {
			w.log.Warn("chain hit anti-bot challenge", "url", current, "hops", depth)
			return nil, types.Fail(types.FailBotChallenge, start,
				fmt.Errorf("anti-bot challenge at %s", current))
		}
		if w.signals.IsDownload(current) {
			w.log.Info("chain reached provider", "url", current, "hops", depth)
			return &Result{FinalURL: current, Chain: chain, Hops: depth, Terminal: true}, nil
		}

		hopStart := time.Now()
		if err := w.page.Navigate(ctx, current, referrer, w.opts.NavTimeout); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, w.ctxFailure(ctx, current, ctxErr)
				}
				return nil, types.Fail(types.FailNavigation, start,
					fmt.Errorf("navigate %s: %w", current, err))
			}
			w.log.Debug("navigation never settled, continuing", "url", current)
		}
		referrer = ""

		if err := w.page.Prepare(ctx); err != nil {
			w.log.Debug("page preparation failed", "url", current, "error", err)
		}

		next, err := w.findNext(ctx, current, hopStart, visited)
		if err != nil {
			return nil, err
		}
		if next == "" {
			return nil, types.Fail(types.FailMaxAttempts, start,
				fmt.Errorf("no way forward from %s after %d attempts", current, w.opts.MaxAttempts))
		}
		if canonicalKey(next) == canonicalKey(current) {
			w.log.Info("chain stalled in place", "url", current, "hops", depth)
			return &Result{FinalURL: current, Chain: chain, Hops: depth, Terminal: false}, nil
		}
		w.log.Debug("chain advanced", "from", current, "to", next, "hop", depth+1)
		current = next
	}
}

// findNext works through the signal sources in priority order, clicking the
// page between rounds. It returns an empty string once the per-hop attempt
// budget runs out.
func (w *Walker) findNext(ctx context.Context, current string, hopStart time.Time, visited *visitedSet) (string, error) {
	base, _ := url.Parse(current)

	if hasCountdownHost(current) {
		if _, err := w.page.ReduceCountdowns(ctx); err != nil {
			w.log.Debug("reduce countdowns failed", "url", current, "error", err)
		}
	}

	for attempt := 1; attempt <= w.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", w.ctxFailure(ctx, current, err)
		}

		if next := w.nextFromCaptures(hopStart, visited); next != "" {
			return next, nil
		}
		if html, err := w.page.HTML(ctx); err == nil {
			// A revisit is returned as-is so the loop guard can call it; only
			// a self-refresh short-circuits to a stall.
			if next, ok := ExtractMetaRefresh(html, base); ok {
				return next, nil
			}
			if next := w.nextFromDOM(html, base, visited); next != "" {
				return next, nil
			}
		} else {
			w.log.Debug("read page html failed", "url", current, "error", err)
		}

		clicked, err := w.page.WaitAndClick(ctx, w.opts.ClickTimeout)
		if err != nil {
			return "", w.ctxFailure(ctx, current, err)
		}
		if clicked {
			// A click often triggers an in-place navigation before any
			// network capture lands. A visited location passes through so
			// the loop guard can reject it.
			if loc, err := w.page.CurrentURL(ctx); err == nil {
				if loc != "" && canonicalKey(loc) != canonicalKey(current) {
					return loc, nil
				}
			}
		}
		if next := w.nextFromCaptures(hopStart, visited); next != "" {
			return next, nil
		}
		w.log.Debug("hop attempt exhausted", "url", current, "attempt", attempt, "clicked", clicked)
	}
	return "", nil
}

// nextFromCaptures picks from URLs the observer recorded during this hop.
// Provider URLs win over anti-bot challenges win over shorteners; within a
// class the most recent capture wins. A challenge URL advances so the loop
// head can raise the matching failure.
func (w *Walker) nextFromCaptures(hopStart time.Time, visited *visitedSet) string {
	captures := w.signals.CapturedSince(hopStart)
	var shortener string
	var download string
	var challenge string
	for _, c := range captures {
		if visited.Seen(c.URL) {
			continue
		}
		if w.signals.IsDownload(c.URL) {
			download = c.URL
			continue
		}
		if w.signals.IsBotChallenge(c.URL) {
			challenge = c.URL
			continue
		}
		if w.signals.IsShortener(c.URL) {
			shortener = c.URL
		}
	}
	if download != "" {
		return download
	}
	if challenge != "" {
		return challenge
	}
	return shortener
}

func (w *Walker) nextFromDOM(html string, base *url.URL, visited *visitedSet) string {
	for _, link := range w.signals.AnalyzeDOMLinks(html, base) {
		if !visited.Seen(link.URL) {
			return link.URL
		}
	}
	return ""
}

func (w *Walker) ctxFailure(ctx context.Context, origin string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.Fail(types.FailTimeout, origin, err)
	}
	return types.Fail(types.FailCancelled, origin, err)
}

func hasCountdownHost(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, pattern := range countdownHosts {
		if strings.Contains(host, pattern) {
			return true
		}
	}
	return false
}
