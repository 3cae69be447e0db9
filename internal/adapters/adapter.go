package adapters

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/browser"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/chain"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/timers"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// Adapter resolves download links for one index site.
type Adapter interface {
	Name() string
	CanHandle(origin string) bool
	Resolve(ctx context.Context, env *Env, origin string, criteria types.Criteria) (*types.Resolution, error)
}

// Env bundles the per-attempt machinery an adapter drives. The resolver
// builds one per browser session.
type Env struct {
	Session  *browser.Session
	Observer *netwatch.Observer
	Timers   *timers.Interceptor
	Browser  config.BrowserConfig
	Resolver config.ResolverConfig
	Log      *slog.Logger
}

// Walk runs the chain walker over the given tab starting at start.
func (e *Env) Walk(ctx context.Context, tab context.Context, start, referrer string) (*chain.Result, error) {
	page := chain.NewTabPage(tab, e.Timers)
	walker := chain.NewWalker(page, e.Observer, chain.Options{
		NavTimeout:   e.Browser.NavTimeout.Duration,
		ClickTimeout: e.Resolver.ClickTimeout.Duration,
	}, e.Log)
	return walker.Walk(ctx, start, referrer)
}

// Registry dispatches origins to adapters in registration order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// DefaultRegistry returns the built-in site adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(&PeliculasGD{}, &Hackstore{})
}

// Lookup returns the first adapter claiming the origin.
func (r *Registry) Lookup(origin string) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.CanHandle(origin) {
			return a, true
		}
	}
	return nil, false
}

// Names lists the registered adapters in dispatch order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// hostMatches reports whether the origin's host is the given domain or one of
// its subdomains.
func hostMatches(origin, domain string) bool {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// resolution assembles a successful result from a ranked option and the chain
// that produced the final URL.
func resolution(adapter, origin string, link types.LinkOption, chainURLs []string) *types.Resolution {
	return &types.Resolution{
		Origin:     origin,
		Link:       link,
		Adapter:    adapter,
		Chain:      chainURLs,
		ResolvedAt: time.Now(),
	}
}
