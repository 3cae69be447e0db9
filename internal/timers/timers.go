package timers

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Interceptor accelerates page timers and manipulates countdown UI. Its
// failures never abort a resolution attempt; callers log and continue.
type Interceptor struct {
	factor int
	log    *slog.Logger
}

// New builds an interceptor with the given speed factor (nominal 10).
func New(factor int, logger *slog.Logger) *Interceptor {
	if factor <= 0 {
		factor = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		factor: factor,
		log:    logger.With("component", "timers"),
	}
}

// Factor returns the configured speed factor.
func (t *Interceptor) Factor() int {
	return t.factor
}

// Install registers the acceleration script for future documents and applies
// it to the current one.
func (t *Interceptor) Install(ctx context.Context) error {
	script := AccelScript(t.factor)
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}),
		chromedp.Evaluate(script, nil),
	)
}

// ReduceCountdowns shortens visible countdown counters on the current page
// and reports how many elements were touched.
func (t *Interceptor) ReduceCountdowns(ctx context.Context) (int, error) {
	var touched int
	if err := chromedp.Run(ctx, chromedp.Evaluate(reduceScript, &touched)); err != nil {
		return 0, err
	}
	if touched > 0 {
		t.log.Debug("reduced countdowns", "elements", touched)
	}
	return touched, nil
}

// ForceEnableButtons strips disabled state from gate buttons and removes
// large overlays. Returns the number of buttons enabled.
func (t *Interceptor) ForceEnableButtons(ctx context.Context) (int, error) {
	var enabled int
	if err := chromedp.Run(ctx, chromedp.Evaluate(forceEnableScript, &enabled)); err != nil {
		return 0, err
	}
	if enabled > 0 {
		t.log.Debug("force-enabled buttons", "elements", enabled)
	}
	return enabled, nil
}

type readyHit struct {
	Found bool    `json:"found"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Text  string  `json:"text"`
}

// WaitAndClick polls once per second for a clickable gate element. The
// in-page click fires inside the poll script; on a hit a raw mouse click at
// the element's center follows as the third strategy. From the halfway point
// of the timeout, ForceEnableButtons runs every five seconds.
func (t *Interceptor) WaitAndClick(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	started := time.Now()
	deadline := started.Add(timeout)
	halfway := started.Add(timeout / 2)
	var lastForce time.Time

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		var hit readyHit
		if err := chromedp.Run(ctx, chromedp.Evaluate(findReadyScript, &hit)); err != nil {
			t.log.Debug("poll for gate element failed", "error", err)
		} else if hit.Found {
			if err := chromedp.Run(ctx, chromedp.MouseClickXY(hit.X, hit.Y)); err != nil {
				t.log.Debug("raw mouse click failed", "error", err)
			}
			t.log.Debug("clicked gate element", "text", hit.Text, "elapsed", time.Since(started).String())
			return true, nil
		}

		now := time.Now()
		if now.After(halfway) && now.Sub(lastForce) >= 5*time.Second {
			if _, err := t.ForceEnableButtons(ctx); err != nil {
				t.log.Debug("force enable failed", "error", err)
			}
			lastForce = now
		}
		if now.After(deadline) {
			return false, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
