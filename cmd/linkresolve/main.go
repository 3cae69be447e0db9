package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/browser"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/cache"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/history"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/probe"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/resolver"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to resolver configuration file")
	originFlag := flag.String("url", "", "Movie page URL to resolve (also accepted as the first argument)")
	quality := flag.String("quality", "", "Preferred quality, e.g. 1080p")
	format := flag.String("format", "", "Preferred release format, e.g. WEB-DL")
	providers := flag.String("providers", "", "Comma-separated provider preference, best first")
	language := flag.String("language", "", "Preferred audio language, e.g. latino")
	headless := flag.Bool("headless", true, "Run the browser headless")
	mobile := flag.Bool("mobile", false, "Emulate a mobile device")
	profileDir := flag.String("profile", "", "Persistent browser profile directory")
	jsonOut := flag.Bool("json", false, "Print the resolution as JSON")
	flag.Parse()

	origin := strings.TrimSpace(*originFlag)
	if origin == "" && flag.NArg() > 0 {
		origin = strings.TrimSpace(flag.Arg(0))
	}
	if origin == "" {
		fmt.Fprintln(os.Stderr, "usage: linkresolve [flags] <url>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Browser.Headless = *headless
	if *mobile {
		cfg.Browser.Mobile = true
	}
	if *profileDir != "" {
		cfg.Browser.ProfileDir = *profileDir
	}

	logger, err := config.BuildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	classifier, err := netwatch.FromConfig(cfg.Classifier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build classifier: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cacheStore, err := cache.New(cfg.Cache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise cache: %v\n", err)
		os.Exit(1)
	}
	if cacheStore != nil {
		defer cacheStore.Close()
	}

	deps := resolver.Deps{
		Launcher:   browser.NewLauncher(cfg.Browser, logger),
		Classifier: classifier,
		Cache:      cacheStore,
		Logger:     logger,
	}
	if cfg.Probe.Enabled {
		deps.Prober = probe.New(cfg.Probe, classifier, logger)
	}
	if cfg.History.Enabled() {
		store, err := history.Open(ctx, cfg.History, logger)
		if err != nil {
			logger.Error("history store unavailable, continuing without it", "error", err)
		} else {
			defer store.Close()
			deps.History = store
		}
	}

	criteria := types.NewCriteria(*quality, *format, splitList(*providers), *language)

	res, err := resolver.New(*cfg, deps).Resolve(ctx, origin, criteria)
	if err != nil {
		var failure *types.Failure
		if errors.As(err, &failure) {
			fmt.Fprintf(os.Stderr, "resolution failed (%s): %v\n", failure.Kind, failure.Err)
		} else {
			fmt.Fprintf(os.Stderr, "resolution failed: %v\n", err)
		}
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printResolution(res)
}

// loadConfig falls back to built-in defaults when the default config path does
// not exist, but an explicitly broken file is always an error.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		defaults := config.Default()
		return &defaults, nil
	}
	return nil, err
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}

func printResolution(res *types.Resolution) {
	fmt.Printf("Resolved %s\n", res.Origin)
	fmt.Printf("  link:     %s\n", res.Link.URL)
	if res.Link.Provider != "" {
		fmt.Printf("  provider: %s\n", res.Link.Provider)
	}
	if res.Link.Quality != "" {
		fmt.Printf("  quality:  %s\n", res.Link.Quality)
	}
	if res.Link.Format != "" {
		fmt.Printf("  format:   %s\n", res.Link.Format)
	}
	fmt.Printf("  score:    %d\n", res.Link.Score)
	fmt.Printf("  adapter:  %s\n", res.Adapter)
	fmt.Printf("  attempts: %d\n", res.Attempts)
	if res.FromCache {
		fmt.Println("  (served from cache)")
	}
	if len(res.Chain) > 1 {
		fmt.Println("  chain:")
		for i, hop := range res.Chain {
			fmt.Printf("    %d. %s\n", i+1, hop)
		}
	}
}
