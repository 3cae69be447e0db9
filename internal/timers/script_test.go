package timers

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestAccelScriptEmbedsFactorAndThreshold(t *testing.T) {
	script := AccelScript(10)
	if !strings.Contains(script, "window.__timerScale = 10") {
		t.Fatal("speed factor not embedded in script")
	}
	if strings.Count(script, "delay > 2000") != 2 {
		t.Fatal("threshold must guard both setTimeout and setInterval")
	}
	if !strings.Contains(script, "if (window.__timerScale) return;") {
		t.Fatal("re-injection guard missing")
	}
}

func TestNewClampsFactor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := New(0, logger).Factor(); got != 10 {
		t.Fatalf("expected default factor 10, got %d", got)
	}
	if got := New(5, logger).Factor(); got != 5 {
		t.Fatalf("expected factor 5, got %d", got)
	}
}

func TestReduceScriptFloorsAtTen(t *testing.T) {
	// The in-page behaviour itself runs in the browser; here we pin the
	// constants the script was built around.
	if !strings.Contains(reduceScript, "Math.max(10, value - 40)") {
		t.Fatal("countdown decrement changed")
	}
	if !strings.Contains(reduceScript, `[id*="time"], [class*="time"]`) {
		t.Fatal("countdown selector list changed")
	}
}

func TestForceEnableScriptCoversOverlays(t *testing.T) {
	if !strings.Contains(forceEnableScript, "vw * vh * 0.4") {
		t.Fatal("overlay coverage threshold changed")
	}
	for _, kw := range []string{"continuar", "descargar", "ingresar"} {
		if !strings.Contains(forceEnableScript, kw) {
			t.Fatalf("keyword %q missing from force-enable script", kw)
		}
	}
}
