package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/browser"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/match"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/stealth"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// Hackstore resolves movie pages on hackstore mirrors. The site lists every
// provider and quality on a single page behind collapsible "VER ENLACES"
// sections, so the adapter expands those, harvests the anchors, and walks the
// best-ranked shortener.
type Hackstore struct{}

func (*Hackstore) Name() string { return "hackstore" }

func (*Hackstore) CanHandle(origin string) bool {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return strings.HasPrefix(host, "hackstore.") || strings.Contains(host, ".hackstore.")
}

const hackstoreSplashScript = `(() => {
  let n = 0;
  document.querySelectorAll('.splash a, .splash button, #splash, .modal-close, .close-button, [class*="skip"]').forEach((el) => {
    try { el.click(); n += 1; } catch (e) {}
  });
  return n;
})()`

const hackstoreExpandScript = `(() => {
  let n = 0;
  document.querySelectorAll('a, button, span, [class*="enlace"], [class*="link"]').forEach((el) => {
    const t = (el.innerText || '').trim().toLowerCase();
    if (t.includes('ver enlaces') || t === 'ver enlace') {
      try { el.click(); n += 1; } catch (e) {}
    }
  });
  return n;
})()`

func (h *Hackstore) Resolve(ctx context.Context, env *Env, origin string, criteria types.Criteria) (*types.Resolution, error) {
	tab := env.Session.Context()
	log := env.Log.With("adapter", h.Name())

	if err := browser.Navigate(tab, origin, "", env.Browser.NavTimeout.Duration); err != nil && !browser.IsCommitTimeout(err) {
		return nil, types.Fail(types.FailNavigation, origin, fmt.Errorf("open origin: %w", err))
	}
	if err := browser.WaitReady(tab, env.Browser.ElementTimeout.Duration); err != nil {
		log.Debug("origin never reached ready state", "error", err)
	}
	if err := stealth.Apply(tab); err != nil {
		log.Debug("stealth mask failed", "error", err)
	}
	if err := env.Timers.Install(tab); err != nil {
		log.Debug("timer install failed", "error", err)
	}

	if err := stealth.Humanize(tab); err != nil {
		log.Debug("input warmup failed", "error", err)
	}

	var clicks int
	if err := chromedp.Run(tab, chromedp.Evaluate(hackstoreSplashScript, &clicks)); err == nil && clicks > 0 {
		log.Debug("dismissed splash elements", "clicks", clicks)
	}
	if err := chromedp.Run(tab, chromedp.Evaluate(hackstoreExpandScript, &clicks)); err == nil && clicks > 0 {
		log.Debug("expanded link sections", "clicks", clicks)
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil, types.Fail(types.FailCancelled, origin, ctx.Err())
		}
	}

	html, err := browser.HTML(tab)
	if err != nil {
		return nil, types.Fail(types.FailNavigation, origin, fmt.Errorf("read page: %w", err))
	}
	base, _ := url.Parse(origin)
	candidates := match.Dedupe(harvestCandidates(html, base))
	ranked := match.Rank(candidates, criteria)
	if len(ranked) == 0 {
		return nil, types.Fail(types.FailNoCandidates, origin, errors.New("no link candidates on page"))
	}
	log.Info("ranked candidates", "total", len(ranked), "best", ranked[0].URL, "score", ranked[0].Score)

	var lastErr error
	for _, opt := range ranked {
		if env.Observer.IsDownload(opt.URL) {
			return resolution(h.Name(), origin, opt, []string{origin, opt.URL}), nil
		}
		if !env.Observer.IsShortener(opt.URL) {
			continue
		}
		res, err := env.Walk(ctx, tab, opt.URL, origin)
		if err != nil {
			log.Debug("chain walk failed", "start", opt.URL, "error", err)
			lastErr = err
			continue
		}
		if res.Terminal {
			final := opt
			final.URL = res.FinalURL
			return resolution(h.Name(), origin, final, append([]string{origin}, res.Chain...)), nil
		}
		lastErr = types.Fail(types.FailNoCandidates, origin,
			fmt.Errorf("chain stalled at %s", res.FinalURL))
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, types.Fail(types.FailNoCandidates, origin, errors.New("no candidate reached a provider"))
}

// harvestCandidates collects external anchors together with enough
// surrounding text for metadata extraction. Internal navigation links are
// dropped.
func harvestCandidates(html string, base *url.URL) []types.RawCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []types.RawCandidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
			return
		}
		resolved := href
		if base != nil && !strings.HasPrefix(lower, "magnet:") {
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			abs := base.ResolveReference(ref)
			if strings.EqualFold(abs.Hostname(), base.Hostname()) {
				return
			}
			resolved = abs.String()
		}
		text := strings.TrimSpace(sel.Text())
		if surrounding := compactText(sel.Parent().Text(), 160); surrounding != "" {
			text = strings.TrimSpace(text + " " + surrounding)
		}
		out = append(out, types.RawCandidate{URL: resolved, Text: text})
	})
	return out
}

// compactText collapses whitespace and truncates to at most n runes.
func compactText(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
