// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package metrics

import (
	"context"

	"github.com/sortie-app/sortie/internal/recommend"
)

// TraceObserver is a trace sink that turns ranking traces into the
// degraded-path counters and forwards each trace to an optional inner sink.
type TraceObserver struct {
	inner recommend.TraceSink
}

// NewTraceObserver wraps inner with metrics observation. A nil inner sink
// means traces are counted and then discarded.
func NewTraceObserver(inner recommend.TraceSink) *TraceObserver {
	return &TraceObserver{inner: inner}
}

// Record implements recommend.TraceSink.
func (o *TraceObserver) Record(ctx context.Context, t recommend.Trace) error {
	if t.PolicyFallback {
		PolicyFallbacks.Inc()
	}
	if t.ColdStart {
		ColdStartTriggers.Inc()
	}
	for _, w := range t.Warnings {
		TraceWarnings.WithLabelValues(w).Inc()
	}

	if o.inner == nil {
		return nil
	}
	return o.inner.Record(ctx, t)
}

var _ recommend.TraceSink = (*TraceObserver)(nil)
