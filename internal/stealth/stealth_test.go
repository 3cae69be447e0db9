package stealth

import (
	"strings"
	"testing"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
)

func TestShouldClose(t *testing.T) {
	cls := netwatch.NewClassifier([]string{"popads.net"}, nil, nil)
	w := NewPopupWatcher(cls, nil)

	cases := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"about:blank", true},
		{"https://popads.net/landing", true},
		{"https://sub.popads.net/x", true},
		{"https://mega.nz/file/abc", false},
		{"https://ouo.io/xyz", false},
	}
	for _, tc := range cases {
		if got := w.ShouldClose(tc.url); got != tc.want {
			t.Errorf("ShouldClose(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestMaskScriptCoversAutomationSignals(t *testing.T) {
	script := Script()
	for _, marker := range []string{"webdriver", "plugins", "languages"} {
		if !strings.Contains(script, marker) {
			t.Errorf("mask script does not touch %q", marker)
		}
	}
}
