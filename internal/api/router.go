// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

// Package api provides the HTTP surface over the slate engine using the Chi
// router: one ranking endpoint, health, and Prometheus metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sortie-app/sortie/internal/config"
)

// Router wires handlers and middleware into the HTTP routing tree.
type Router struct {
	handler *Handler
	cfg     *config.APIConfig
}

// NewRouter creates a router around the given handler.
func NewRouter(handler *Handler, cfg *config.APIConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack, applied to all routes in order.
	r.Use(TraceIDMiddleware())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", router.handler.Health)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByRealIP(router.cfg.RateLimitReqs, router.cfg.RateLimitWindow))
			r.Use(MetricsMiddleware("/api/v1/slates"))
			r.Post("/slates", router.handler.Slates)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
