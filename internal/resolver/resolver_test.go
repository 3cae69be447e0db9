package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/adapters"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/cache"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

type scriptedAdapter struct {
	name     string
	failures []error
	calls    int
	result   *types.Resolution
}

func (a *scriptedAdapter) Name() string { return a.name }

func (a *scriptedAdapter) CanHandle(origin string) bool { return true }

func (a *scriptedAdapter) Resolve(context.Context, *adapters.Env, string, types.Criteria) (*types.Resolution, error) {
	a.calls++
	if a.calls <= len(a.failures) {
		return nil, a.failures[a.calls-1]
	}
	return a.result, nil
}

type recordingSink struct {
	appended []*types.Resolution
}

func (s *recordingSink) Append(_ context.Context, res *types.Resolution) error {
	s.appended = append(s.appended, res)
	return nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Resolver.MaxRetries = 2
	cfg.Resolver.BackoffBase = config.DurationFrom(time.Millisecond)
	return cfg
}

func testResolver(t *testing.T, cfg config.Config, adapter adapters.Adapter, deps Deps) *Resolver {
	t.Helper()
	if adapter != nil {
		deps.Registry = adapters.NewRegistry(adapter)
	}
	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(cfg, deps)
	// Bypass the browser: the scripted adapter is the attempt.
	r.attempt = func(ctx context.Context, a adapters.Adapter, origin string, criteria types.Criteria) (*types.Resolution, error) {
		return a.Resolve(ctx, nil, origin, criteria)
	}
	return r
}

func success(origin string) *types.Resolution {
	return &types.Resolution{
		Origin:     origin,
		Link:       types.LinkOption{URL: "https://mega.nz/file/ok", Provider: "mega", Score: 80},
		Adapter:    "scripted",
		ResolvedAt: time.Now(),
	}
}

func TestResolveRetriesTransientFailures(t *testing.T) {
	origin := "https://peliculasgd.net/pelicula/"
	adapter := &scriptedAdapter{
		name: "scripted",
		failures: []error{
			types.Fail(types.FailNavigation, origin, errors.New("net::ERR_TIMED_OUT")),
			types.Fail(types.FailNoCandidates, origin, errors.New("nothing captured")),
		},
		result: success(origin),
	}
	r := testResolver(t, testConfig(), adapter, Deps{})

	res, err := r.Resolve(context.Background(), origin, types.NewCriteria("", "", nil, ""))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if adapter.calls != 3 || res.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got calls=%d attempts=%d", adapter.calls, res.Attempts)
	}
}

func TestResolveStopsOnNonRetriableFailure(t *testing.T) {
	origin := "https://peliculasgd.net/pelicula/"
	adapter := &scriptedAdapter{
		name: "scripted",
		failures: []error{
			types.Fail(types.FailChainLoop, origin, errors.New("revisited hop")),
		},
		result: success(origin),
	}
	r := testResolver(t, testConfig(), adapter, Deps{})

	_, err := r.Resolve(context.Background(), origin, types.NewCriteria("", "", nil, ""))
	if types.FailKindOf(err) != types.FailChainLoop {
		t.Fatalf("expected chain loop error, got %v", err)
	}
	if adapter.calls != 1 {
		t.Fatalf("non-retriable failure must not retry, got %d calls", adapter.calls)
	}
}

func TestResolveGivesUpAfterRetryBudget(t *testing.T) {
	origin := "https://peliculasgd.net/pelicula/"
	failure := types.Fail(types.FailTimeout, origin, errors.New("gate never opened"))
	adapter := &scriptedAdapter{
		name:     "scripted",
		failures: []error{failure, failure, failure, failure},
		result:   success(origin),
	}
	r := testResolver(t, testConfig(), adapter, Deps{})

	_, err := r.Resolve(context.Background(), origin, types.NewCriteria("", "", nil, ""))
	if types.FailKindOf(err) != types.FailTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if adapter.calls != 3 {
		t.Fatalf("expected exactly 3 attempts (1 + 2 retries), got %d", adapter.calls)
	}
}

func TestResolveRejectsInvalidInput(t *testing.T) {
	r := testResolver(t, testConfig(), &scriptedAdapter{name: "scripted"}, Deps{})

	for _, origin := range []string{"", "not-a-url", "ftp://example.com/x", "//missing-scheme"} {
		_, err := r.Resolve(context.Background(), origin, types.NewCriteria("", "", nil, ""))
		if types.FailKindOf(err) != types.FailInvalidInput {
			t.Fatalf("origin %q: expected invalid input, got %v", origin, err)
		}
	}
}

func TestResolveShortCircuitsUnsupportedSites(t *testing.T) {
	// Real registry: example.com matches no adapter, and the attempt seam
	// must never run.
	cfg := testConfig()
	deps := Deps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	r := New(cfg, deps)
	r.attempt = func(context.Context, adapters.Adapter, string, types.Criteria) (*types.Resolution, error) {
		t.Fatal("attempt must not run for unsupported sites")
		return nil, nil
	}

	_, err := r.Resolve(context.Background(), "https://example.com/movie/", types.NewCriteria("", "", nil, ""))
	if types.FailKindOf(err) != types.FailUnsupportedSite {
		t.Fatalf("expected unsupported site, got %v", err)
	}
}

func TestResolveServesAndFillsCache(t *testing.T) {
	origin := "https://peliculasgd.net/pelicula/"
	adapter := &scriptedAdapter{name: "scripted", result: success(origin)}
	store := cache.NewMemory(time.Minute)
	sink := &recordingSink{}
	r := testResolver(t, testConfig(), adapter, Deps{Cache: store, History: sink})
	criteria := types.NewCriteria("", "", nil, "")

	first, err := r.Resolve(context.Background(), origin, criteria)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if first.FromCache {
		t.Fatal("first resolution must not come from cache")
	}
	if len(sink.appended) != 1 {
		t.Fatalf("expected 1 history append, got %d", len(sink.appended))
	}

	second, err := r.Resolve(context.Background(), origin, criteria)
	if err != nil {
		t.Fatalf("cached resolve failed: %v", err)
	}
	if !second.FromCache {
		t.Fatal("second resolution must be served from cache")
	}
	if adapter.calls != 1 {
		t.Fatalf("cache hit must not re-run the adapter, got %d calls", adapter.calls)
	}
}
