// Package main is the entry point for the sports feed server. It loads
// configuration, builds the per-provider resilience stack (pacing, retry,
// circuit breaking, caching), assembles the middleware chain, starts the
// HTTP server, and handles graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oluwafemi02/sportsfeed-core/internal/admin"
	"github.com/oluwafemi02/sportsfeed-core/internal/api"
	"github.com/oluwafemi02/sportsfeed-core/internal/cache"
	"github.com/oluwafemi02/sportsfeed-core/internal/circuitbreaker"
	"github.com/oluwafemi02/sportsfeed-core/internal/config"
	"github.com/oluwafemi02/sportsfeed-core/internal/health"
	"github.com/oluwafemi02/sportsfeed-core/internal/logging"
	"github.com/oluwafemi02/sportsfeed-core/internal/metrics"
	"github.com/oluwafemi02/sportsfeed-core/internal/middleware"
	"github.com/oluwafemi02/sportsfeed-core/internal/providers"
	"github.com/oluwafemi02/sportsfeed-core/internal/ratelimit"
	"github.com/oluwafemi02/sportsfeed-core/internal/upstream"
)

func main() {
	configPath := flag.String("config", "configs/feedserver.yaml", "path to configuration file")
	flag.Parse()

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.Setup(cfg.Logging)
	if err != nil {
		bootLogger.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	for _, w := range cfg.Warnings {
		logger.Warn("config warning", "message", w)
	}

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"providers", len(cfg.Providers),
		"metrics_enabled", cfg.Metrics.IsEnabled(),
		"metrics_path", cfg.Metrics.Path,
		"admin_enabled", cfg.Admin.Enabled,
		"trusted_proxies", len(cfg.Server.TrustedProxies),
	)

	// Initialize Prometheus metrics
	if cfg.Metrics.IsEnabled() {
		metrics.Init()
	}

	// Shared response cache
	store, err := cache.NewMemory(cfg.Cache.MaxEntries)
	if err != nil {
		logger.Error("failed to create cache", "error", err)
		os.Exit(1)
	}

	// Build the per-provider stacks: breaker -> client -> adapter
	breakers := make(map[string]*circuitbreaker.ProviderBreaker, len(cfg.Providers))
	adapters := make(map[string]*providers.Adapter, len(cfg.Providers))
	for _, p := range cfg.Providers {
		breaker := circuitbreaker.NewProviderBreaker(p.Name, circuitbreaker.Config{
			FailureThreshold:  p.Circuit.FailureThreshold,
			RecoveryTimeout:   p.Circuit.RecoveryTimeout,
			SlowCallThreshold: p.Circuit.SlowCallThreshold,
			MaxConcurrent:     p.Circuit.MaxConcurrent,
		}, logger)
		breakers[p.Name] = breaker

		client, err := upstream.NewClient(p, breaker, logger)
		if err != nil {
			logger.Error("failed to create upstream client", "provider", p.Name, "error", err)
			os.Exit(1)
		}
		adapters[p.Name] = providers.NewAdapter(client, store, p.TTL(), p.Name, logger)
	}

	fixturesAdapter, err := requireAdapter(adapters, "results", providers.NewFixturesAdapter)
	if err != nil {
		logger.Error("provider wiring failed", "error", err)
		os.Exit(1)
	}
	oddsAdapter, err := requireAdapter(adapters, "odds", providers.NewOddsAdapter)
	if err != nil {
		logger.Error("provider wiring failed", "error", err)
		os.Exit(1)
	}
	predictionsAdapter, err := requireAdapter(adapters, "predictions", providers.NewPredictionsAdapter)
	if err != nil {
		logger.Error("provider wiring failed", "error", err)
		os.Exit(1)
	}

	// Inbound rate limiter (per client IP)
	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, cfg.Server.TrustedProxies, logger)
	defer limiter.Stop()

	apiHandler := api.New(fixturesAdapter, oddsAdapter, predictionsAdapter, logger)
	apiMux := http.NewServeMux()
	apiHandler.RegisterRoutes(apiMux)

	// Assemble middleware stack:
	// Recovery -> RequestID -> Logging -> Deadline -> RateLimit -> API
	var handler http.Handler = apiMux
	handler = limiter.Middleware()(handler)
	if t := cfg.Server.GlobalTimeout(); t > 0 {
		handler = middleware.Deadline(t)(handler)
	}
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	// Initialize config reloader
	reloader := config.NewReloader(*configPath, cfg, logger)
	reloader.Start()
	defer reloader.Stop()

	// Register reload callbacks for components that support hot-reload
	reloader.OnReload(func(newCfg *config.Config) {
		limiter.UpdateConfig(newCfg.RateLimit.MaxRequests, newCfg.RateLimit.Window)
		for _, p := range newCfg.Providers {
			if breaker, ok := breakers[p.Name]; ok {
				breaker.UpdateConfig(circuitbreaker.Config{
					FailureThreshold:  p.Circuit.FailureThreshold,
					RecoveryTimeout:   p.Circuit.RecoveryTimeout,
					SlowCallThreshold: p.Circuit.SlowCallThreshold,
					MaxConcurrent:     p.Circuit.MaxConcurrent,
				})
			}
		}
	})

	// Register health, metrics and admin routes on a separate mux,
	// then combine with the main handler
	sideMux := http.NewServeMux()
	healthHandler := health.New(breakers, logger)
	healthHandler.RegisterRoutes(sideMux)

	metricsPath := cfg.Metrics.Path
	if cfg.Metrics.IsEnabled() {
		sideMux.Handle(metricsPath, metrics.Handler())
		logger.Info("metrics endpoint registered", "path", metricsPath)
	}

	if cfg.Admin.Enabled {
		adminHandler := admin.New(reloader, limiter, breakers, store, cfg.Admin.IPAllowlist, logger)
		adminHandler.RegisterRoutes(sideMux)
		logger.Info("admin endpoints registered", "allowlist", len(cfg.Admin.IPAllowlist))
	}

	// Combine: health, metrics and admin endpoints bypass the middleware stack
	combined := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/health") ||
			strings.HasPrefix(r.URL.Path, "/ready") ||
			strings.HasPrefix(r.URL.Path, "/admin") ||
			(cfg.Metrics.IsEnabled() && r.URL.Path == metricsPath) {
			sideMux.ServeHTTP(w, r)
			return
		}
		handler.ServeHTTP(w, r)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      combined,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("starting feed server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("draining in-flight requests", "timeout", cfg.Server.ShutdownTimeout)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("feed server stopped gracefully")
}

// requireAdapter wraps the named provider's base adapter with its typed
// surface, failing when the config does not declare the provider.
func requireAdapter[T any](adapters map[string]*providers.Adapter, name string, wrap func(*providers.Adapter) T) (T, error) {
	base, ok := adapters[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("config must declare a %q provider", name)
	}
	return wrap(base), nil
}
