// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/basketrec/internal/api"
	"github.com/tomtom215/basketrec/internal/config"
	"github.com/tomtom215/basketrec/internal/logging"
	"github.com/tomtom215/basketrec/internal/metrics"
	"github.com/tomtom215/basketrec/internal/supervisor"
	"github.com/tomtom215/basketrec/internal/supervisor/services"
	"github.com/tomtom215/basketrec/internal/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// catalogGCInterval and catalogGCDiscardRatio tune badger value log GC.
const (
	catalogGCInterval     = 10 * time.Minute
	catalogGCDiscardRatio = 0.5
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("basketrec stopped with error")
	}
}

func run() error {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(cfg.LoggingOptions())
	logger := logging.WithComponent("server")
	logger.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("index_path", cfg.Recommend.IndexPath).
		Str("catalog_dir", cfg.Recommend.CatalogDir).
		Msg("Starting Basketrec")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	if cfg.ShouldWarnAboutCORS() {
		logger.Warn().Msg("CORS allows any origin; set CORS_ORIGINS before exposing the API")
	}

	_, shutdownTracing, err := tracing.Init(cfg.TracingOptions(version))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error().Err(err).Msg("Error shutting down tracing")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := initRecommend(ctx, cfg, logging.Logger())
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing catalog")
		}
	}()

	handler, err := newAPIHandler(cfg, engine)
	if err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// Data layer
	if engine.Store != nil {
		tree.AddDataService(services.NewCatalogGCService(engine.Store, catalogGCInterval, catalogGCDiscardRatio, logging.Logger()))
	}

	// Engine layer
	if c := engine.Recommender.Cache(); c != nil {
		tree.AddEngineService(services.NewCacheJanitorService(c, cfg.Cache.CleanupInterval, logging.Logger()))
	}

	// API layer
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.Logger()))
	logger.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logger.Info().Msg("Starting supervisor tree...")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logger.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logger.Info().Msg("Application stopped gracefully")
	return nil
}

// newAPIHandler builds the HTTP handler tree for the engine.
func newAPIHandler(cfg *config.Config, engine *engineComponents) (http.Handler, error) {
	hcfg := api.HandlerConfig{
		Recommender:       engine.Dispatcher,
		Stats:             engine.Recommender,
		HistoryBasketSize: cfg.Recommend.HistoryBasketSize,
		Breaker:           engine.Dispatcher,
		Version:           version,
	}
	// A nil *catalog.Store must not become a non-nil interface.
	if engine.Store != nil {
		hcfg.History = engine.Store
	}
	handler, err := api.NewHandler(hcfg)
	if err != nil {
		return nil, fmt.Errorf("create API handler: %w", err)
	}

	mw := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	return api.NewRouter(handler, mw).SetupChi(), nil
}
