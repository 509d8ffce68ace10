// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

/*
Package metrics provides Prometheus metrics collection and export.

The package instruments the API surface and the slate engine using promauto
collectors registered at package load. Metrics are exposed at the /metrics
endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

API metrics:
  - api_requests_total: total requests (counter; method, endpoint, status_code)
  - api_request_duration_seconds: request latency (histogram; method, endpoint)
  - api_active_requests: in-flight requests (gauge)

Ranking metrics:
  - ranking_duration_seconds: engine latency per ranking call (histogram)
  - ranking_errors_total: failed ranking calls (counter; error_type)
  - ranking_pool_size: candidates per call (histogram)
  - slate_items: size of the most recent slate per label (gauge)

Degraded-path metrics:
  - policy_fallbacks_total: calls resolved with a static policy preset
  - cold_start_triggers_total: calls that triggered augmentation
  - trace_warnings_total: degraded-path warnings per kind

# Trace Sink

TraceObserver implements the engine's trace-sink contract and converts each
ranking trace into the degraded-path counters above. Wrap it around a
persistence sink with NewTraceObserver to get both.
*/
package metrics
