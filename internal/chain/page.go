package chain

import (
	"context"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/browser"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/stealth"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/timers"
)

// TabPage implements Page over a chromedp tab context.
type TabPage struct {
	tab   context.Context
	timer *timers.Interceptor
}

// NewTabPage wraps a tab context and timer interceptor.
func NewTabPage(tab context.Context, timer *timers.Interceptor) *TabPage {
	return &TabPage{tab: tab, timer: timer}
}

func (p *TabPage) Navigate(_ context.Context, rawurl, referrer string, timeout time.Duration) error {
	return browser.Navigate(p.tab, rawurl, referrer, timeout)
}

func (p *TabPage) CurrentURL(_ context.Context) (string, error) {
	return browser.Location(p.tab)
}

func (p *TabPage) HTML(_ context.Context) (string, error) {
	return browser.HTML(p.tab)
}

// Prepare masks the automation fingerprint and installs the timer
// accelerator on the current document.
func (p *TabPage) Prepare(_ context.Context) error {
	if err := stealth.Apply(p.tab); err != nil {
		return err
	}
	return p.timer.Install(p.tab)
}

// WaitAndClick warms the page with simulated input first; gate scripts often
// refuse clicks from a pointer that never moved.
func (p *TabPage) WaitAndClick(_ context.Context, timeout time.Duration) (bool, error) {
	_ = stealth.Humanize(p.tab)
	return p.timer.WaitAndClick(p.tab, timeout)
}

func (p *TabPage) ReduceCountdowns(_ context.Context) (int, error) {
	return p.timer.ReduceCountdowns(p.tab)
}
