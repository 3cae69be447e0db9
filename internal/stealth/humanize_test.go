package stealth

import (
	"math"
	"testing"
)

func TestMousePathEndsOnTarget(t *testing.T) {
	path := mousePath(10, 20, 500, 400, 10)
	if len(path) != 10 {
		t.Fatalf("expected 10 points, got %d", len(path))
	}
	last := path[len(path)-1]
	if last.x != 500 || last.y != 400 {
		t.Fatalf("path must end on the target, ended at (%v, %v)", last.x, last.y)
	}
}

func TestMousePathStaysNearTheLine(t *testing.T) {
	const jitter = 6.0
	path := mousePath(0, 0, 1000, 600, 16)
	for i, pt := range path {
		tfrac := float64(i+1) / float64(len(path))
		wantX := 1000 * tfrac
		wantY := 600 * tfrac
		if math.Abs(pt.x-wantX) > jitter || math.Abs(pt.y-wantY) > jitter {
			t.Fatalf("point %d (%v, %v) strays from (%v, %v)", i, pt.x, pt.y, wantX, wantY)
		}
	}
}

func TestMousePathMinimumSteps(t *testing.T) {
	if got := len(mousePath(0, 0, 10, 10, 0)); got != 2 {
		t.Fatalf("expected 2 points for degenerate step count, got %d", got)
	}
}
