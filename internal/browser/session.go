package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
)

// Desktop user agents rotated across sessions.
var desktopUserAgents = []string{
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

const mobileUserAgent = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"

// Launcher creates browser sessions with bounded concurrency.
type Launcher struct {
	cfg       config.BrowserConfig
	log       *slog.Logger
	semaphore chan struct{}
}

// NewLauncher constructs a launcher from browser configuration.
func NewLauncher(cfg config.BrowserConfig, logger *slog.Logger) *Launcher {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1366
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 768
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		cfg:       cfg,
		log:       logger.With("component", "browser"),
		semaphore: make(chan struct{}, cfg.MaxSessions),
	}
}

// Session owns one Chrome instance plus its default tab for the duration of
// a resolution attempt.
type Session struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	release     func()
	log         *slog.Logger

	screenshotDir string
	userAgent     string
}

// Launch starts a Chrome instance with automation-masking flags. It blocks
// while the concurrent-session limit is reached.
func (l *Launcher) Launch(parent context.Context) (*Session, error) {
	select {
	case l.semaphore <- struct{}{}:
	case <-parent.Done():
		return nil, parent.Err()
	}
	release := func() { <-l.semaphore }

	ua := l.pickUserAgent()
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(l.cfg.ViewportWidth, l.cfg.ViewportHeight),
	)
	if dir := strings.TrimSpace(l.cfg.ProfileDir); dir != "" {
		execOpts = append(execOpts, chromedp.UserDataDir(dir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, execOpts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(
			int64(l.cfg.ViewportWidth), int64(l.cfg.ViewportHeight), 1, false),
	}
	if l.cfg.Mobile {
		ua = mobileUserAgent
		actions = []chromedp.Action{
			emulation.SetDeviceMetricsOverride(390, 844, 3, true),
			emulation.SetTouchEmulationEnabled(true),
			emulation.SetUserAgentOverride(mobileUserAgent),
		}
	}

	if err := chromedp.Run(ctx, actions...); err != nil {
		cancelCtx()
		cancelAlloc()
		release()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	l.log.Debug("browser session started", "user_agent", ua, "mobile", l.cfg.Mobile)
	return &Session{
		ctx:           ctx,
		cancelCtx:     cancelCtx,
		cancelAlloc:   cancelAlloc,
		release:       release,
		log:           l.log,
		screenshotDir: l.cfg.ScreenshotDir,
		userAgent:     ua,
	}, nil
}

func (l *Launcher) pickUserAgent() string {
	if len(l.cfg.UserAgents) > 0 {
		return l.cfg.UserAgents[rand.Intn(len(l.cfg.UserAgents))]
	}
	return desktopUserAgents[rand.Intn(len(desktopUserAgents))]
}

// Context returns the chromedp context of the default tab.
func (s *Session) Context() context.Context {
	return s.ctx
}

// UserAgent reports the user agent the session was launched with.
func (s *Session) UserAgent() string {
	return s.userAgent
}

// Navigate commits a navigation in the given tab context without waiting for
// the load event. Shortener pages frequently never settle, so callers treat
// a deadline error as tolerated.
func Navigate(ctx context.Context, rawurl, referrer string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return chromedp.Run(navCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		params := page.Navigate(rawurl)
		if referrer != "" {
			params = params.WithReferrer(referrer)
		}
		_, _, errText, err := params.Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return errors.New(errText)
		}
		return nil
	}))
}

// IsCommitTimeout reports whether a navigation error is only a commit
// timeout, which the pipeline swallows.
func IsCommitTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// Location returns the current URL of the tab.
func Location(ctx context.Context) (string, error) {
	var loc string
	if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// HTML exports the outer HTML of the current document.
func HTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// WaitReady polls document.readyState until complete or the timeout elapses.
func WaitReady(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		var readyState string
		if err := chromedp.Run(waitCtx, chromedp.Evaluate(`document.readyState`, &readyState)); err != nil {
			return err
		}
		if readyState == "complete" {
			return nil
		}
		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return waitCtx.Err()
		}
	}
}

// Screenshot captures the full page into the session's screenshot directory.
// A blank directory disables diagnostics captures.
func (s *Session) Screenshot(ctx context.Context, name string) (string, error) {
	if s.screenshotDir == "" {
		return "", nil
	}
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.MkdirAll(s.screenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(s.screenshotDir, fmt.Sprintf("%s-%d.png", name, time.Now().UnixMilli()))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

// PageTargets lists the open page targets of this browser.
func (s *Session) PageTargets() ([]*target.Info, error) {
	infos, err := chromedp.Targets(s.ctx)
	if err != nil {
		return nil, err
	}
	pages := make([]*target.Info, 0, len(infos))
	for _, info := range infos {
		if info.Type == "page" {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

// TabContext attaches a chromedp context to an existing page target.
func (s *Session) TabContext(id target.ID) (context.Context, context.CancelFunc) {
	return chromedp.NewContext(s.ctx, chromedp.WithTargetID(id))
}

// CloseTab closes a page target through the browser connection.
func (s *Session) CloseTab(id target.ID) error {
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Browser == nil {
		return errors.New("no browser connection")
	}
	execCtx := cdp.WithExecutor(s.ctx, c.Browser)
	return target.CloseTarget(id).Do(execCtx)
}

// Close tears down the tab, the browser process, and releases the session
// slot. Safe to call once on every exit path.
func (s *Session) Close() {
	s.cancelCtx()
	s.cancelAlloc()
	if s.release != nil {
		s.release()
		s.release = nil
	}
}
