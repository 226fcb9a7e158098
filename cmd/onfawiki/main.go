package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"onfawiki/internal/app"
	"onfawiki/internal/i18n"
	"onfawiki/internal/logger"
	"onfawiki/internal/store"
	"onfawiki/internal/wiki"
)

func main() {
	cfg, err := app.LoadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(shutdownCtx, cfg.StoreURL)
	if err != nil {
		if !errors.Is(err, wiki.ErrNotConfigured) {
			logg.Error("open store", logger.Error(err))
			log.Fatalf("open store: %v", err)
		}
		// Serve anyway so every request reports the configuration problem.
		logg.Error("store is not configured, serving errors until it is", logger.Error(err))
		backend = store.Unconfigured{Err: err}
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gateway := store.Instrument(backend, store.NewMetrics(reg))

	cache := wiki.NewCache(gateway, wiki.WithFetchTimeout(cfg.FetchTimeout), wiki.WithTTL(cfg.CacheTTL))
	engine := wiki.NewEngine(cache, wiki.WithLogger(logg.With(logger.String("component", "engine"))))

	catalog, err := i18n.LoadCatalog(cfg.TranslationsDir)
	if err != nil {
		log.Fatalf("load translations: %v", err)
	}

	handler, err := app.NewServer(engine, cfg,
		app.WithServerLogger(logg.With(logger.String("component", "http"))),
		app.WithCatalog(catalog),
		app.WithRegistry(reg),
	)
	if err != nil {
		log.Fatalf("init server: %v", err)
	}

	if cfg.EphemeralSecret {
		logg.Warn("WIKI_SESSION_SECRET is not set; admin sessions end on restart")
	}
	if !cfg.AdminEnabled() {
		logg.Warn("admin login is disabled until WIKI_ADMIN_USER and WIKI_ADMIN_PASSWORD are set")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Info("onfawiki listening",
			logger.String("addr", srv.Addr),
			logger.String("store", backend.Kind()),
			logger.Int("languages", len(catalog.Languages())))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logg.Error("graceful shutdown failed", logger.Error(err))
		return
	}
	logg.Info("onfawiki stopped")
}
