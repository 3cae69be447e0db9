package stealth

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// Humanize replays a small burst of organic input before a gate interaction:
// a jittered mouse glide across the page, a nudge of scroll, and a short
// pause. Gate scripts on shortener pages watch for pointer and scroll
// activity before arming their buttons.
func Humanize(ctx context.Context) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	fromX := 40 + rng.Float64()*200
	fromY := 60 + rng.Float64()*160
	toX := 240 + rng.Float64()*800
	toY := 180 + rng.Float64()*420
	path := mousePath(fromX, fromY, toX, toY, 8+rng.Intn(8))

	scroll := 80 + rng.Intn(240)
	dwell := time.Duration(150+rng.Intn(350)) * time.Millisecond

	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, pt := range path {
				if err := input.DispatchMouseEvent(input.MouseMoved, pt.x, pt.y).Do(ctx); err != nil {
					return err
				}
				select {
				case <-time.After(time.Duration(10+rng.Intn(25)) * time.Millisecond):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}),
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", scroll), nil),
		chromedp.Sleep(dwell),
	)
}

type point struct {
	x, y float64
}

// mousePath interpolates a jittered line between two screen points. The last
// point always lands exactly on the target so a follow-up click hits it.
func mousePath(fromX, fromY, toX, toY float64, steps int) []point {
	if steps < 2 {
		steps = 2
	}
	pts := make([]point, 0, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		jx := (rand.Float64() - 0.5) * 12
		jy := (rand.Float64() - 0.5) * 12
		if i == steps {
			jx, jy = 0, 0
		}
		pts = append(pts, point{
			x: fromX + (toX-fromX)*t + jx,
			y: fromY + (toY-fromY)*t + jy,
		})
	}
	return pts
}
