// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package tracestore

import (
	"context"
	"testing"
	"time"

	"github.com/sortie-app/sortie/internal/recommend"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTrace(id string) recommend.Trace {
	return recommend.Trace{
		TraceID: id,
		Policy: recommend.ExplorationPolicy{
			Name:          "balanced",
			NoveltyTarget: 0.5,
			AllowWildcard: true,
		},
		ProfileUsed: true,
		Scored:      42,
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	trace := sampleTrace("t1")
	trace.PolicyFallback = true
	trace.ColdStart = true
	trace.Warnings = []string{"pool_truncated", "cold_start_query_failed"}

	if err := store.Record(ctx, trace); err != nil {
		t.Fatalf("Record() = %v", err)
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent() returned %d traces, want 1", len(got))
	}

	round := got[0]
	if round.TraceID != "t1" {
		t.Errorf("TraceID = %q, want t1", round.TraceID)
	}
	if round.Policy.Name != "balanced" || round.Policy.NoveltyTarget != 0.5 || !round.Policy.AllowWildcard {
		t.Errorf("Policy = %+v, want the recorded policy", round.Policy)
	}
	if !round.PolicyFallback || !round.ProfileUsed || !round.ColdStart {
		t.Errorf("flags = %+v, want all recorded flags set", round)
	}
	if round.Scored != 42 {
		t.Errorf("Scored = %d, want 42", round.Scored)
	}
	if len(round.Warnings) != 2 || round.Warnings[0] != "pool_truncated" {
		t.Errorf("Warnings = %v, want both recorded warnings", round.Warnings)
	}
}

func TestStore_RecentOrdersNewestFirst(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		if err := store.Record(ctx, sampleTrace(id)); err != nil {
			t.Fatalf("Record(%s) = %v", id, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d traces, want 2", len(got))
	}
	if got[0].TraceID != "third" || got[1].TraceID != "second" {
		t.Errorf("Recent() order = [%s, %s], want newest first", got[0].TraceID, got[1].TraceID)
	}
}

func TestStore_RejectsEmptyTraceID(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	if err := store.Record(context.Background(), recommend.Trace{}); err == nil {
		t.Error("Record() with empty trace ID = nil error, want rejection")
	}
}

func TestStore_EmptyWarningsRoundTrip(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, sampleTrace("clean")); err != nil {
		t.Fatalf("Record() = %v", err)
	}
	got, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() = %v", err)
	}
	if len(got) != 1 || got[0].Warnings != nil {
		t.Errorf("Warnings = %v, want nil for a clean trace", got[0].Warnings)
	}
}

func TestStore_CountAndPurge(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Record(ctx, sampleTrace(id)); err != nil {
			t.Fatalf("Record(%s) = %v", id, err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	purged, err := store.Purge(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("Purge() = %v", err)
	}
	if purged != 3 {
		t.Errorf("Purge() = %d, want all 3 removed", purged)
	}

	count, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() after purge = %d, want 0", count)
	}
}
