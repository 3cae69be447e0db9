package netwatch

import (
	"io"
	"log/slog"
	"net/url"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveLocation(t *testing.T) {
	cases := []struct {
		base, loc, want string
	}{
		{"https://ouo.io/go/1", "https://mega.nz/file/a", "https://mega.nz/file/a"},
		{"https://ouo.io/go/1", "/next/2", "https://ouo.io/next/2"},
		{"https://ouo.io/go/1", "next", "https://ouo.io/go/next"},
	}
	for _, c := range cases {
		if got := resolveLocation(c.base, c.loc); got != c.want {
			t.Fatalf("resolveLocation(%q, %q) = %q, want %q", c.base, c.loc, got, c.want)
		}
	}
}

func TestObserverRecordsInArrivalOrder(t *testing.T) {
	obs := NewObserver(nil, discardLogger())

	obs.record("https://ouo.io/a", "redirect")
	obs.record("https://mega.nz/file/1", "redirect")
	obs.record("https://ouo.io/a", "redirect") // duplicate, ignored

	snap := obs.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 captures, got %d", len(snap))
	}
	if snap[0].URL != "https://ouo.io/a" || snap[1].URL != "https://mega.nz/file/1" {
		t.Fatalf("captures out of order: %+v", snap)
	}

	best, ok := obs.BestCaptured()
	if !ok || best != "https://mega.nz/file/1" {
		t.Fatalf("expected most recent capture, got %q (ok=%v)", best, ok)
	}
}

func TestObserverSnapshotIsACopy(t *testing.T) {
	obs := NewObserver(nil, discardLogger())
	obs.record("https://mega.nz/file/1", "direct")

	snap := obs.Snapshot()
	snap[0].URL = "mutated"

	again := obs.Snapshot()
	if again[0].URL != "https://mega.nz/file/1" {
		t.Fatal("snapshot mutation leaked into observer state")
	}
}

func TestObserverStats(t *testing.T) {
	obs := NewObserver(nil, discardLogger())
	obs.intercepted.Store(10)
	obs.blocked.Store(4)
	obs.record("https://mega.nz/file/1", "direct")

	stats := obs.Stats()
	if stats.Intercepted != 10 || stats.Blocked != 4 || stats.Captured != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if eff := stats.Efficiency(); eff != 0.4 {
		t.Fatalf("expected efficiency 0.4, got %v", eff)
	}
	if (Stats{}).Efficiency() != 0 {
		t.Fatal("zero stats should report zero efficiency")
	}
}

func TestAnalyzeDOMLinks(t *testing.T) {
	obs := NewObserver(nil, discardLogger())
	base, _ := url.Parse("https://acortame.example/step/1")

	html := `
	<html><body>
	  <a href="https://mega.nz/file/x">Descargar aquí</a>
	  <a href="/salto">Ver enlace</a>
	  <a href="https://doubleclick.net/promo">Descargar gratis</a>
	  <a href="javascript:void(0)">Descargar</a>
	  <a href="#">Obtener</a>
	  <a href="https://example.com/otra">una página cualquiera</a>
	</body></html>`

	links := obs.AnalyzeDOMLinks(html, base)
	if len(links) != 1 {
		t.Fatalf("expected 1 link above threshold, got %d: %+v", len(links), links)
	}
	if links[0].URL != "https://mega.nz/file/x" {
		t.Fatalf("unexpected top link: %+v", links[0])
	}
	// Download plus keyword beats the threshold with room to spare.
	if links[0].Score < 1.1 {
		t.Fatalf("expected combined score 1.2, got %v", links[0].Score)
	}
}
