package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/browser"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/chain"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/match"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/stealth"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// PeliculasGD resolves movie pages on peliculasgd mirrors. The site funnels
// every download through a public-links button that opens a fresh tab, an
// intermediate page with an AQUI style link, and a long ad-gated countdown
// before the provider URL finally fires on the wire.
type PeliculasGD struct{}

func (*PeliculasGD) Name() string { return "peliculasgd" }

func (*PeliculasGD) CanHandle(origin string) bool {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return strings.HasPrefix(host, "peliculasgd.") || strings.Contains(host, ".peliculasgd.")
}

const publicLinksScript = `(() => {
  const keys = ['enlaces públicos', 'enlaces publicos', 'enlace público', 'enlace publico', 'ver enlaces', 'links públicos', 'links publicos'];
  for (const el of document.querySelectorAll('a, button, input[type="button"], [onclick]')) {
    const t = (el.innerText || el.value || '').trim().toLowerCase();
    if (keys.some((k) => t.includes(k))) {
      try { el.click(); } catch (e) {}
      return t;
    }
  }
  return '';
})()`

// runningTimerScript reports whether a countdown element still shows a bare
// number above zero, which means the gate has not opened yet.
const runningTimerScript = `(() => {
  const els = document.querySelectorAll('.timer, #timer, #counter, .countdown, [id*="time"], [class*="time"]');
  for (const el of els) {
    const t = (el.innerText || '').trim();
    if (/^\d+$/.test(t) && parseInt(t, 10) > 0) return true;
  }
  return false;
})()`

var onclickURLPattern = regexp.MustCompile(`(?i)window\.(?:open|location(?:\.href)?)\s*[=(]\s*['"]([^'"]+)['"]`)

var intermediateKeywords = []string{"aqui", "aquí", "ingresa", "vínculo", "vinculo", "enlace"}

func (p *PeliculasGD) Resolve(ctx context.Context, env *Env, origin string, criteria types.Criteria) (*types.Resolution, error) {
	tab := env.Session.Context()
	log := env.Log.With("adapter", p.Name())

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

	before, err := env.Session.PageTargets()
	if err != nil {
		return nil, types.Fail(types.FailNavigation, origin, fmt.Errorf("list tabs: %w", err))
	}

	if err := stealth.Humanize(tab); err != nil {
		log.Debug("input warmup failed", "error", err)
	}

	var clickedText string
	if err := chromedp.Run(tab, chromedp.Evaluate(publicLinksScript, &clickedText)); err != nil {
		return nil, types.Fail(types.FailNavigation, origin, fmt.Errorf("click public links: %w", err))
	}
	if clickedText == "" {
		return nil, types.Fail(types.FailNoCandidates, origin, errors.New("no public links control on page"))
	}
	log.Info("clicked public links control", "text", clickedText)

	workTab, cancelTab, err := p.adoptFreshTab(ctx, env, before)
	if err != nil {
		return nil, err
	}
	if workTab == nil {
		// The site sometimes navigates in place instead of opening a tab.
		workTab = tab
	} else {
		defer cancelTab()
		if err := stealth.Apply(workTab); err != nil {
			log.Debug("stealth mask failed on fresh tab", "error", err)
		}
		if err := env.Timers.Install(workTab); err != nil {
			log.Debug("timer install failed on fresh tab", "error", err)
		}
	}

	p.followIntermediate(ctx, env, workTab, origin)

	final, chainURLs, err := p.marathon(ctx, env, workTab, origin)
	if err != nil {
		return nil, err
	}

	opt := match.Parse(types.RawCandidate{URL: final})
	opt.Score = match.Score(opt, criteria)
	return resolution(p.Name(), origin, opt, append([]string{origin}, chainURLs...)), nil
}

// adoptFreshTab waits briefly for a tab spawned by the public-links click,
// closes trash tabs on sight, and attaches to the first legitimate one. A nil
// context with nil error means no tab showed up.
func (p *PeliculasGD) adoptFreshTab(ctx context.Context, env *Env, before []*target.Info) (context.Context, context.CancelFunc, error) {
	known := make(map[target.ID]struct{}, len(before))
	for _, info := range before {
		known[info.TargetID] = struct{}{}
	}

	deadline := time.Now().Add(env.Browser.ElementTimeout.Or(15 * time.Second))
	cls := env.Observer.Classifier()
	for time.Now().Before(deadline) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return nil, nil, types.Fail(types.FailCancelled, "", ctx.Err())
		}

		infos, err := env.Session.PageTargets()
		if err != nil {
			continue
		}
		for _, info := range infos {
			if _, ok := known[info.TargetID]; ok {
				continue
			}
			if info.URL == "" || info.URL == "about:blank" || cls.IsAd(info.URL) {
				if err := env.Session.CloseTab(info.TargetID); err == nil {
					env.Log.Debug("closed trash tab", "url", info.URL)
					known[info.TargetID] = struct{}{}
				}
				continue
			}
			env.Log.Info("adopted fresh tab", "url", info.URL)
			tabCtx, cancel := env.Session.TabContext(info.TargetID)
			return tabCtx, cancel, nil
		}
	}
	return nil, nil, nil
}

// followIntermediate clicks through the AQUI style hop when present, sending
// the origin as referrer. Failure is tolerated; the marathon may still catch
// a capture.
func (p *PeliculasGD) followIntermediate(ctx context.Context, env *Env, tab context.Context, origin string) {
	html, err := browser.HTML(tab)
	if err != nil {
		return
	}
	loc, _ := browser.Location(tab)
	base, _ := url.Parse(loc)

	for _, href := range intermediateLinks(html, base) {
		if env.Observer.Classifier().IsAd(href) {
			continue
		}
		if err := browser.Navigate(tab, href, origin, env.Browser.NavTimeout.Duration); err != nil && !browser.IsCommitTimeout(err) {
			env.Log.Debug("intermediate hop failed", "url", href, "error", err)
			continue
		}
		env.Log.Info("followed intermediate link", "url", href)
		if err := env.Timers.Install(tab); err != nil {
			env.Log.Debug("timer install failed after intermediate hop", "error", err)
		}
		return
	}
}

// marathon watches the countdown tab until a provider URL lands on the wire.
// While the countdown shows digits the loop only dwells; once the gate looks
// open it clicks, and every harvested onclick URL gets a chance through the
// chain walker.
func (p *PeliculasGD) marathon(ctx context.Context, env *Env, tab context.Context, origin string) (string, []string, error) {
	timeout := env.Resolver.MarathonTimeout.Or(240 * time.Second)
	dwell := env.Resolver.CountdownDwell.Or(5 * time.Second)
	started := time.Now()
	deadline := started.Add(timeout)

	attempts := 0
	lastLocation, _ := browser.Location(tab)
	tried := make(map[string]struct{})

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return "", nil, types.Fail(types.FailCancelled, origin, err)
		}

		if final, chainURLs, ok, err := p.fromCaptures(ctx, env, tab, origin, started, tried); ok || err != nil {
			return final, chainURLs, err
		}

		var running bool
		if err := chromedp.Run(tab, chromedp.Evaluate(runningTimerScript, &running)); err == nil && running {
			if _, err := env.Timers.ReduceCountdowns(tab); err != nil {
				env.Log.Debug("reduce countdowns failed", "error", err)
			}
			select {
			case <-time.After(dwell):
			case <-ctx.Done():
				return "", nil, types.Fail(types.FailCancelled, origin, ctx.Err())
			}
			continue
		}

		if err := stealth.Humanize(tab); err != nil {
			env.Log.Debug("input warmup failed", "error", err)
		}
		clicked, err := env.Timers.WaitAndClick(tab, env.Resolver.ClickTimeout.Or(30*time.Second))
		if err != nil {
			return "", nil, types.Fail(types.FailCancelled, origin, err)
		}

		if html, err := browser.HTML(tab); err == nil {
			loc, _ := browser.Location(tab)
			base, _ := url.Parse(loc)
			for _, u := range onclickURLs(html, base) {
				if _, done := tried[u]; done {
					continue
				}
				tried[u] = struct{}{}
				if env.Observer.IsDownload(u) {
					return u, []string{u}, nil
				}
				if env.Observer.IsShortener(u) {
					if res, err := env.Walk(ctx, tab, u, origin); err == nil && res.Terminal {
						return res.FinalURL, res.Chain, nil
					}
				}
			}
		}

		loc, _ := browser.Location(tab)
		if loc != "" && loc != lastLocation {
			if env.Observer.IsBotChallenge(loc) {
				return "", nil, types.Fail(types.FailBotChallenge, origin,
					fmt.Errorf("anti-bot challenge at %s", loc))
			}
			lastLocation = loc
			attempts = 0
			env.Log.Debug("countdown tab advanced", "url", loc)
			if err := env.Timers.Install(tab); err != nil {
				env.Log.Debug("timer install failed after advance", "error", err)
			}
			continue
		}
		if !clicked {
			attempts++
			if attempts >= chain.DefaultMaxAttempts {
				return "", nil, types.Fail(types.FailMaxAttempts, origin,
					fmt.Errorf("gate never opened after %d attempts", attempts))
			}
		}
	}
	return "", nil, types.Fail(types.FailTimeout, origin,
		fmt.Errorf("no provider link within %s", timeout))
}

// fromCaptures drains wire captures recorded since the marathon started.
// Shorteners whose walk already stalled are marked in tried so the next
// marathon iteration does not walk them again.
func (p *PeliculasGD) fromCaptures(ctx context.Context, env *Env, tab context.Context, origin string, since time.Time, tried map[string]struct{}) (string, []string, bool, error) {
	download, shortener := pickCapture(env.Observer, env.Observer.CapturedSince(since), tried)
	if download != "" {
		return download, []string{download}, true, nil
	}
	if shortener != "" {
		tried[shortener] = struct{}{}
		res, err := env.Walk(ctx, tab, shortener, origin)
		if err != nil {
			return "", nil, false, nil
		}
		if res.Terminal {
			return res.FinalURL, res.Chain, true, nil
		}
	}
	return "", nil, false, nil
}

// pickCapture splits captures into an immediate provider hit and the next
// shortener worth walking. Provider URLs win outright; shorteners already
// attempted are skipped, the most recent remaining one wins.
func pickCapture(obs *netwatch.Observer, captures []netwatch.Capture, tried map[string]struct{}) (download, shortener string) {
	for _, c := range captures {
		if obs.IsDownload(c.URL) {
			download = c.URL
			continue
		}
		if _, done := tried[c.URL]; done {
			continue
		}
		if obs.IsShortener(c.URL) {
			shortener = c.URL
		}
	}
	return download, shortener
}

// onclickURLs pulls navigation targets out of onclick handlers.
func onclickURLs(html string, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	doc.Find("[onclick]").Each(func(_ int, sel *goquery.Selection) {
		for _, m := range onclickURLPattern.FindAllStringSubmatch(sel.AttrOr("onclick", ""), -1) {
			raw := strings.TrimSpace(m[1])
			if raw == "" {
				continue
			}
			if base != nil {
				if ref, err := url.Parse(raw); err == nil {
					raw = base.ResolveReference(ref).String()
				}
			}
			if _, ok := seen[raw]; ok {
				continue
			}
			seen[raw] = struct{}{}
			out = append(out, raw)
		}
	})
	return out
}

// intermediateLinks returns hrefs whose anchor text marks the AQUI style hop.
func intermediateLinks(html string, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if text == "" {
			return
		}
		matched := false
		for _, kw := range intermediateKeywords {
			if strings.Contains(text, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		out = append(out, href)
	})
	return out
}
