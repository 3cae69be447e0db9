package probe

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
)

func testProber(cfg config.ProbeConfig, cls *netwatch.Classifier) *Prober {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, cls, logger)
}

func TestTraceRecordsEveryRedirectHop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusFound)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>done</body></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := testProber(config.ProbeConfig{}, nil)
	trace, err := p.Trace(context.Background(), srv.URL+"/a")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if len(trace.Hops) != 3 {
		t.Fatalf("expected 3 hops, got %v", trace.Hops)
	}
	if trace.FinalURL != srv.URL+"/final" || trace.Status != http.StatusOK {
		t.Fatalf("unexpected end: %q status %d", trace.FinalURL, trace.Status)
	}
	if trace.Terminal {
		t.Fatal("plain html page must not be terminal")
	}
}

func TestTraceFollowsMetaRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/meta", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta http-equiv="refresh" content="0;url=/landing"></head></html>`)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>landing</html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := testProber(config.ProbeConfig{}, nil)
	trace, err := p.Trace(context.Background(), srv.URL+"/meta")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if trace.FinalURL != srv.URL+"/landing" {
		t.Fatalf("meta refresh not followed, ended at %q", trace.FinalURL)
	}
}

func TestTraceStopsOnProviderURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/go", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://provider.test/file/9", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cls := netwatch.NewClassifier(nil, []string{"provider.test"}, nil)
	p := testProber(config.ProbeConfig{}, cls)

	trace, err := p.Trace(context.Background(), srv.URL+"/go")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if !trace.Terminal || trace.FinalURL != "https://provider.test/file/9" {
		t.Fatalf("expected terminal provider hit, got %+v", trace)
	}
}

func TestTraceCapsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop?n="+r.URL.Query().Get("n")+"x", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := testProber(config.ProbeConfig{MaxRedirects: 3}, nil)
	if _, err := p.Trace(context.Background(), srv.URL+"/loop"); err == nil {
		t.Fatal("expected redirect cap error")
	}
}

func TestTraceDecodesGzipBodies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		fmt.Fprint(gz, `<meta http-equiv="refresh" content="0;url=/plain">`)
		gz.Close()
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := testProber(config.ProbeConfig{}, nil)
	trace, err := p.Trace(context.Background(), srv.URL+"/gz")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if trace.FinalURL != srv.URL+"/plain" {
		t.Fatalf("gzip meta refresh not followed, ended at %q", trace.FinalURL)
	}
}

func TestGateHonoursDisallow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := NewGate("", srv.Client(), logger)

	blocked, _ := url.Parse(srv.URL + "/private/page")
	if gate.Allowed(context.Background(), blocked) {
		t.Fatal("disallowed path must be blocked")
	}
	open, _ := url.Parse(srv.URL + "/public")
	if !gate.Allowed(context.Background(), open) {
		t.Fatal("allowed path must pass")
	}
}

func TestGateFailsOpenWithoutRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := NewGate("", srv.Client(), logger)

	u, _ := url.Parse(srv.URL + "/anything")
	if !gate.Allowed(context.Background(), u) {
		t.Fatal("missing robots.txt must fail open")
	}
}
