package probe

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/chain"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
)

// Trace is the outcome of a plain-HTTP walk along a redirect chain.
type Trace struct {
	Hops     []string
	FinalURL string
	Status   int
	Terminal bool
	Elapsed  time.Duration
}

// Prober follows server-side redirects and meta refreshes without a browser.
// Chains that gate on JavaScript stop early; the caller falls through to the
// full browser pipeline in that case.
type Prober struct {
	client       *http.Client
	gate         *Gate
	cls          *netwatch.Classifier
	userAgent    string
	maxRedirects int
	maxBodyBytes int64
	log          *slog.Logger
}

// New constructs a prober. A nil classifier falls back to the built-in
// dictionaries.
func New(cfg config.ProbeConfig, cls *netwatch.Classifier, logger *slog.Logger) *Prober {
	if cls == nil {
		cls = netwatch.NewClassifier(nil, nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 2 * 1024 * 1024
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 8
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			MaxIdleConns:          20,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		// Redirects are followed by hand so every hop is recorded.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	p := &Prober{
		client:       client,
		cls:          cls,
		userAgent:    cfg.UserAgent,
		maxRedirects: maxRedirects,
		maxBodyBytes: maxBody,
		log:          logger.With("component", "probe"),
	}
	if cfg.RespectRobots {
		p.gate = NewGate(cfg.UserAgent, client, logger)
	}
	return p
}

// Trace walks the chain starting at rawurl over plain HTTP. It stops on the
// first page that neither redirects nor meta-refreshes, or as soon as a
// provider URL appears.
func (p *Prober) Trace(ctx context.Context, rawurl string) (*Trace, error) {
	start := time.Now()
	current := strings.TrimSpace(rawurl)
	trace := &Trace{}

	for hop := 0; ; hop++ {
		if hop > p.maxRedirects {
			return nil, fmt.Errorf("probe exceeded %d redirects at %s", p.maxRedirects, current)
		}
		u, err := url.Parse(current)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("probe hit unusable url %q", current)
		}
		if p.gate != nil && !p.gate.Allowed(ctx, u) {
			return nil, fmt.Errorf("robots disallows %s", current)
		}
		trace.Hops = append(trace.Hops, current)

		if p.cls.IsDownload(current) {
			trace.FinalURL = current
			trace.Terminal = true
			trace.Elapsed = time.Since(start)
			return trace, nil
		}

		next, status, err := p.step(ctx, u)
		if err != nil {
			return nil, err
		}
		if next == "" {
			trace.FinalURL = current
			trace.Status = status
			trace.Elapsed = time.Since(start)
			return trace, nil
		}
		current = next
	}
}

// step issues one GET and returns the next hop, or an empty string when the
// page neither redirects nor refreshes.
func (p *Prober) step(ctx context.Context, u *url.URL) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", 0, fmt.Errorf("build probe request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9,en;q=0.7")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("probe %s: %w", u, err)
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := strings.TrimSpace(resp.Header.Get("Location"))
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if loc == "" {
			return "", resp.StatusCode, nil
		}
		ref, err := url.Parse(loc)
		if err != nil {
			return "", resp.StatusCode, nil
		}
		return u.ResolveReference(ref).String(), resp.StatusCode, nil
	}

	body, err := p.readBody(resp)
	if err != nil {
		return "", resp.StatusCode, err
	}
	if next, ok := chain.ExtractMetaRefresh(string(body), u); ok {
		return next, resp.StatusCode, nil
	}
	return "", resp.StatusCode, nil
}

func (p *Prober) readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, p.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read probe body: %w", err)
	}
	if int64(len(body)) > p.maxBodyBytes {
		return nil, fmt.Errorf("probe body exceeds limit of %d bytes", p.maxBodyBytes)
	}
	return body, nil
}
