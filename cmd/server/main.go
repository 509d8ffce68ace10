// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

// Package main is the entry point for the Sortie server.
//
// Sortie recommends time-bound local activities as three diversified slates
// (Best, Wildcard, Close & Easy) with per-item reasons. The server wraps the
// in-process slate engine with a small HTTP surface.
//
// # Startup Order
//
//  1. Configuration: layered load via Koanf v2 (defaults, YAML file, env)
//  2. Logging: global zerolog initialization from config
//  3. Trace store: optional DuckDB-backed trace persistence
//  4. Engine: slate engine with MMR diversifier and collaborator wiring
//  5. HTTP server: Chi router with the ranking endpoint, health and metrics
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops accepting
// new connections and waits for in-flight requests up to the configured
// drain timeout.
//
// # Example Usage
//
//	export SORTIE_HTTP_PORT=8080
//	export SORTIE_LOG_LEVEL=debug
//	export SORTIE_TRACE_STORE_ENABLED=true
//	./sortie
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sortie-app/sortie/internal/api"
	"github.com/sortie-app/sortie/internal/cache"
	"github.com/sortie-app/sortie/internal/config"
	"github.com/sortie-app/sortie/internal/logging"
	"github.com/sortie-app/sortie/internal/metrics"
	"github.com/sortie-app/sortie/internal/recommend"
	"github.com/sortie-app/sortie/internal/recommend/rerank"
	"github.com/sortie-app/sortie/internal/tracestore"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(cfg.Logging)
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting sortie server")

	var store *tracestore.Store
	if cfg.TraceStore.Enabled {
		store, err = tracestore.Open(context.Background(), cfg.TraceStore.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	engine, err := buildEngine(cfg, store)
	if err != nil {
		return err
	}

	handler := api.NewHandler(engine, cfg.API.MaxBodyBytes)
	router := api.NewRouter(handler, &cfg.API)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stopPurge := make(chan struct{})
	defer close(stopPurge)
	if store != nil {
		go purgeLoop(store, cfg.TraceStore, stopPurge)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	logging.Info().Msg("Server stopped")
	return nil
}

// buildEngine wires the slate engine with its collaborators. The reference
// wiring uses an empty in-memory policy store behind a circuit breaker and an
// LRU cache, plus a metrics-observing trace sink that forwards to the trace
// store when one is configured; deployments with real collaborators swap
// them here.
func buildEngine(cfg *config.Config, store *tracestore.Store) (*recommend.Engine, error) {
	policies := cache.NewPolicyStore(
		recommend.NewBreakerPolicyStore(
			recommend.NewStaticPolicyStore(nil),
			recommend.DefaultBreakerPolicyStoreConfig(),
		),
		cache.DefaultPolicyStoreConfig(),
	)

	var inner recommend.TraceSink
	if store != nil {
		inner = store
	}

	return recommend.NewEngine(&cfg.Recommend, recommend.Dependencies{
		Diversifier: rerank.NewMMR(cfg.Recommend.Diversity.Lambda),
		Policies:    policies,
		Traces:      metrics.NewTraceObserver(inner),
	}, logging.Logger())
}

// purgeLoop enforces the trace retention window until stop is closed.
func purgeLoop(store *tracestore.Store, cfg config.TraceStoreConfig, stop <-chan struct{}) {
	ticker := time.NewTicker(cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := store.Purge(ctx, time.Now().UTC().Add(-cfg.Retention)); err != nil {
				logging.Warn().Err(err).Msg("Trace purge failed")
			}
			cancel()
		}
	}
}
