// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package api

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sortie-app/sortie/internal/logging"
	"github.com/sortie-app/sortie/internal/metrics"
)

// TraceIDMiddleware assigns each request a trace ID (from the X-Trace-ID
// header or freshly generated), stores it in the logging context, and echoes
// it back on the response so callers can correlate slates with traces.
func TraceIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get("X-Trace-ID")
			if traceID == "" {
				traceID = logging.GenerateTraceID()
			}

			ctx := logging.ContextWithTraceID(r.Context(), traceID)
			w.Header().Set("X-Trace-ID", traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request counts, latency and in-flight gauge for
// the given endpoint label.
func MetricsMiddleware(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.APIActiveRequests.Inc()
			defer metrics.APIActiveRequests.Dec()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			metrics.RecordAPIRequest(r.Method, endpoint,
				strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}
