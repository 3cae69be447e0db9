package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/adapters"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/browser"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/cache"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/match"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/probe"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/stealth"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/timers"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// HistorySink records successful resolutions. Postgres in production, a fake
// in tests.
type HistorySink interface {
	Append(ctx context.Context, res *types.Resolution) error
}

// Deps bundles the collaborators the resolver orchestrates.
type Deps struct {
	Registry   *adapters.Registry
	Launcher   *browser.Launcher
	Prober     *probe.Prober
	Classifier *netwatch.Classifier
	Cache      cache.Store
	History    HistorySink
	Logger     *slog.Logger
}

// Resolver turns an index-site movie URL into a direct provider link. It
// validates input, short-circuits unsupported sites before any browser
// launches, and retries transient failures with exponential backoff.
type Resolver struct {
	cfg     config.Config
	deps    Deps
	limiter *HostLimiter
	log     *slog.Logger

	// attempt seam for tests; production uses browserAttempt.
	attempt func(ctx context.Context, adapter adapters.Adapter, origin string, criteria types.Criteria) (*types.Resolution, error)
}

// New builds a resolver from configuration and collaborators.
func New(cfg config.Config, deps Deps) *Resolver {
	if deps.Registry == nil {
		deps.Registry = adapters.DefaultRegistry()
	}
	if deps.Classifier == nil {
		deps.Classifier = netwatch.NewClassifier(nil, nil, nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Resolver{
		cfg:     cfg,
		deps:    deps,
		limiter: NewHostLimiter(cfg.Resolver.PerHostDelay.Duration, cfg.Resolver.RateLimit),
		log:     deps.Logger.With("component", "resolver"),
	}
	r.attempt = r.browserAttempt
	return r
}

// Resolve runs the full pipeline for one origin URL.
func (r *Resolver) Resolve(ctx context.Context, origin string, criteria types.Criteria) (*types.Resolution, error) {
	started := time.Now()
	origin = strings.TrimSpace(origin)

	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, types.Fail(types.FailInvalidInput, origin,
			fmt.Errorf("origin must be an absolute http(s) url"))
	}

	adapter, ok := r.deps.Registry.Lookup(origin)
	if !ok {
		return nil, types.Fail(types.FailUnsupportedSite, origin,
			fmt.Errorf("no adapter for host %s", u.Hostname()))
	}
	log := r.log.With("origin", origin, "adapter", adapter.Name())

	key := cache.Key(origin, criteria)
	if r.deps.Cache != nil {
		if cached, hit, err := r.deps.Cache.Get(ctx, key); err != nil {
			log.Debug("cache read failed", "error", err)
		} else if hit {
			cached.FromCache = true
			log.Info("served from cache", "link", cached.Link.URL)
			return cached, nil
		}
	}

	if err := r.limiter.Wait(ctx, u.Hostname()); err != nil {
		return nil, types.Fail(types.FailCancelled, origin, err)
	}

	if res := r.probeFastPath(ctx, origin, criteria, log); res != nil {
		res.Elapsed = time.Since(started)
		r.persist(ctx, key, res, log)
		return res, nil
	}

	maxRetries := r.cfg.Resolver.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoffBase := r.cfg.Resolver.BackoffBase.Or(time.Second)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := backoffBase << (attempt - 1)
			log.Info("retrying after failure", "attempt", attempt+1, "backoff", backoff.String(), "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, types.Fail(types.FailCancelled, origin, ctx.Err())
			}
		}

		res, err := r.attempt(ctx, adapter, origin, criteria)
		if err == nil {
			res.Attempts = attempt + 1
			res.Elapsed = time.Since(started)
			log.Info("resolved", "link", res.Link.URL, "provider", res.Link.Provider,
				"attempts", res.Attempts, "elapsed", res.Elapsed.String())
			r.persist(ctx, key, res, log)
			return res, nil
		}
		lastErr = err
		if !types.FailKindOf(err).Retriable() {
			break
		}
	}
	return nil, lastErr
}

// probeFastPath tries to finish the chain over plain HTTP before paying for a
// browser. Any failure falls through silently.
func (r *Resolver) probeFastPath(ctx context.Context, origin string, criteria types.Criteria, log *slog.Logger) *types.Resolution {
	if r.deps.Prober == nil || !r.cfg.Probe.Enabled || !r.cfg.Resolver.ProbeFirst {
		return nil
	}
	trace, err := r.deps.Prober.Trace(ctx, origin)
	if err != nil || !trace.Terminal {
		return nil
	}
	opt := match.Parse(types.RawCandidate{URL: trace.FinalURL})
	opt.Score = match.Score(opt, criteria)
	log.Info("resolved via http probe", "link", trace.FinalURL, "hops", len(trace.Hops))
	return &types.Resolution{
		Origin:     origin,
		Link:       opt,
		Adapter:    "probe",
		Chain:      trace.Hops,
		Attempts:   1,
		ResolvedAt: time.Now(),
	}
}

func (r *Resolver) persist(ctx context.Context, key string, res *types.Resolution, log *slog.Logger) {
	if r.deps.Cache != nil {
		if err := r.deps.Cache.Set(ctx, key, res); err != nil {
			log.Debug("cache write failed", "error", err)
		}
	}
	if r.deps.History != nil {
		if err := r.deps.History.Append(ctx, res); err != nil {
			log.Warn("history write failed", "error", err)
		}
	}
}

// browserAttempt runs one full browser-driven resolution attempt. Every
// attempt gets a fresh session so a poisoned tab never bleeds into the next
// try.
func (r *Resolver) browserAttempt(ctx context.Context, adapter adapters.Adapter, origin string, criteria types.Criteria) (*types.Resolution, error) {
	if r.deps.Launcher == nil {
		return nil, types.Fail(types.FailNavigation, origin, errors.New("no browser launcher configured"))
	}
	session, err := r.deps.Launcher.Launch(ctx)
	if err != nil {
		return nil, types.Fail(types.FailNavigation, origin, fmt.Errorf("launch session: %w", err))
	}
	defer session.Close()

	observer := netwatch.NewObserver(r.deps.Classifier, r.log)
	if err := observer.Attach(session.Context()); err != nil {
		return nil, types.Fail(types.FailNavigation, origin, fmt.Errorf("attach observer: %w", err))
	}
	stealth.NewPopupWatcher(r.deps.Classifier, r.log).Watch(session.Context())

	env := &adapters.Env{
		Session:  session,
		Observer: observer,
		Timers:   timers.New(r.cfg.Resolver.SpeedFactor, r.log),
		Browser:  r.cfg.Browser,
		Resolver: r.cfg.Resolver,
		Log:      r.log,
	}

	res, err := adapter.Resolve(ctx, env, origin, criteria)
	if err != nil {
		stats := observer.Stats()
		r.log.Debug("attempt failed", "origin", origin, "error", err,
			"intercepted", stats.Intercepted, "blocked", stats.Blocked, "captured", stats.Captured)
		return nil, err
	}
	return res, nil
}
