package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/board-feeds/app/api"
	"github.com/lysyi3m/board-feeds/app/cache"
	"github.com/lysyi3m/board-feeds/app/cfg"
	"github.com/lysyi3m/board-feeds/app/dispatch"
	"github.com/lysyi3m/board-feeds/app/feed"
	"github.com/lysyi3m/board-feeds/app/upstream"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Board Feeds server", "version", appCfg.Version)
	slog.Debug("Configuration loaded",
		"upstream_url", appCfg.UpstreamURL,
		"site_url", appCfg.Site.BaseURL,
		"cache_ttl", appCfg.CacheTTLDuration(),
		"negative_cache_ttl", appCfg.NegativeCacheTTLDuration(),
		"upstream_timeout", appCfg.UpstreamTimeoutDuration())

	resourceCache := cache.New(
		cache.WithTTL(appCfg.CacheTTLDuration()),
		cache.WithNegativeTTL(appCfg.NegativeCacheTTLDuration()),
		cache.WithSweepInterval(appCfg.CacheSweepDuration()),
	)
	resourceCache.Start()
	defer resourceCache.Stop()

	client := upstream.NewClient(appCfg.UpstreamURL, &http.Client{}, appCfg.UserAgent, appCfg.UpstreamTimeoutDuration())
	renderer := feed.NewRenderer(appCfg.Site, time.Now)
	dispatcher := dispatch.NewDispatcher(resourceCache, client, renderer)

	apiHandler := api.NewHandler(dispatcher, resourceCache, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.StaticDir)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Server running", "url", fmt.Sprintf("http://localhost:%s", appCfg.Port))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
