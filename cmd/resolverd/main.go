package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/api"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/browser"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/cache"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/history"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/netwatch"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/probe"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/resolver"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to resolver configuration file")
	addr := flag.String("addr", "", "HTTP listen address (overrides api.addr)")
	maxJobs := flag.Int("max-jobs", 0, "Maximum concurrent resolution jobs (overrides api.max_jobs)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}
	if *maxJobs > 0 {
		cfg.API.MaxJobs = *maxJobs
	}
	if cfg.API.MaxJobs <= 0 {
		cfg.API.MaxJobs = 4
	}

	logger, err := config.BuildLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	classifier, err := netwatch.FromConfig(cfg.Classifier)
	if err != nil {
		log.Fatalf("failed to build classifier: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheStore, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatalf("failed to initialise cache: %v", err)
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

	var historyStore *history.Store
	if cfg.History.Enabled() {
		historyStore, err = history.Open(ctx, cfg.History, logger)
		if err != nil {
			logger.Error("failed to initialise history store", "error", err)
			os.Exit(1)
		}
		defer historyStore.Close()
		deps.History = historyStore
	}

	r := resolver.New(*cfg, deps)

	manager, err := api.NewJobManager(ctx, r.Resolve, cfg.API.MaxJobs, logger)
	if err != nil {
		log.Fatalf("failed to initialise job manager: %v", err)
	}

	var reader api.HistoryReader
	if historyStore != nil {
		reader = historyStore
	}
	server := api.NewServer(manager, reader)

	httpServer := &http.Server{
		Addr:    cfg.API.Addr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
		manager.Shutdown()
	}()

	logger.Info("resolver daemon listening", "addr", cfg.API.Addr, "max_jobs", cfg.API.MaxJobs)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	log.Println("resolver daemon stopped")
}
