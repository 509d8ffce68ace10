// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - API endpoint latency and throughput
// - Slate engine ranking performance and outcomes
// - Collaborator fallbacks (policy lookup, cold-start query)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Ranking Metrics
	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ranking_duration_seconds",
			Help:    "Duration of slate ranking calls in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	RankingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_errors_total",
			Help: "Total number of failed ranking calls",
		},
		[]string{"error_type"}, // "invalid_window", "invalid_weights", "internal"
	)

	RankingPoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ranking_pool_size",
			Help:    "Number of candidates per ranking call",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200},
		},
	)

	SlateItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slate_items",
			Help: "Number of items in the most recently composed slate, per label",
		},
		[]string{"slate"},
	)

	// Collaborator Fallback Metrics
	PolicyFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "policy_fallbacks_total",
			Help: "Total number of ranking calls resolved with a static policy preset",
		},
	)

	ColdStartTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cold_start_triggers_total",
			Help: "Total number of ranking calls that triggered cold-start augmentation",
		},
	)

	TraceWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trace_warnings_total",
			Help: "Total number of degraded-path warnings recorded on ranking traces",
		},
		[]string{"warning"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRanking records one completed ranking call.
func RecordRanking(poolSize int, duration time.Duration) {
	RankingDuration.Observe(duration.Seconds())
	RankingPoolSize.Observe(float64(poolSize))
}

// RecordRankingError records a failed ranking call.
func RecordRankingError(errorType string) {
	RankingErrors.WithLabelValues(errorType).Inc()
}

// RecordSlate records the size of a composed slate.
func RecordSlate(label string, items int) {
	SlateItems.WithLabelValues(label).Set(float64(items))
}
