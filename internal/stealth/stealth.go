package stealth

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
)

// Apply installs the fingerprint mask as an init script for future documents
// and evaluates it immediately in the current one.
func Apply(ctx context.Context) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(maskScript).Do(ctx)
			return err
		}),
		chromedp.Evaluate(maskScript, nil),
	)
}

// Script exposes the raw mask for contexts that inject it themselves.
func Script() string {
	return maskScript
}

// PopupWatcher auto-closes popup targets that settle on about:blank or an ad
// domain, and logs the rest.
type PopupWatcher struct {
	cls    *netwatch.Classifier
	log    *slog.Logger
	settle time.Duration
}

// NewPopupWatcher builds a watcher over the given classifier.
func NewPopupWatcher(cls *netwatch.Classifier, logger *slog.Logger) *PopupWatcher {
	if cls == nil {
		cls = netwatch.NewClassifier(nil, nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PopupWatcher{
		cls:    cls,
		log:    logger.With("component", "popup"),
		settle: 500 * time.Millisecond,
	}
}

// Watch subscribes to target-creation events on the browser context.
func (w *PopupWatcher) Watch(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		created, ok := ev.(*target.EventTargetCreated)
		if !ok {
			return
		}
		info := created.TargetInfo
		if info == nil || info.Type != "page" || info.OpenerID == "" {
			return
		}
		go w.inspect(ctx, info.TargetID)
	})
}

func (w *PopupWatcher) inspect(ctx context.Context, id target.ID) {
	select {
	case <-time.After(w.settle):
	case <-ctx.Done():
		return
	}

	c := chromedp.FromContext(ctx)
	if c == nil || c.Browser == nil {
		return
	}
	execCtx := cdp.WithExecutor(ctx, c.Browser)

	info, err := target.GetTargetInfo().WithTargetID(id).Do(execCtx)
	if err != nil || info == nil {
		return
	}
	if w.ShouldClose(info.URL) {
		if err := target.CloseTarget(id).Do(execCtx); err != nil {
			w.log.Debug("close popup failed", "url", info.URL, "error", err)
			return
		}
		w.log.Info("closed ad popup", "url", info.URL)
		return
	}
	w.log.Debug("popup kept open", "url", info.URL)
}

// ShouldClose reports whether a popup at the given URL is unwanted.
func (w *PopupWatcher) ShouldClose(rawurl string) bool {
	if rawurl == "" || rawurl == "about:blank" {
		return true
	}
	return w.cls.IsAd(rawurl)
}
