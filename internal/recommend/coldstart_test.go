// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubAugmentSource returns a fixed pool or error.
type stubAugmentSource struct {
	pool []CandidateItem
	err  error
}

func (s *stubAugmentSource) GenericPool(context.Context, string, time.Time, time.Time) ([]CandidateItem, error) {
	return s.pool, s.err
}

func TestShouldAugment(t *testing.T) {
	t.Parallel()

	budget := PriceLow
	tests := []struct {
		name     string
		source   AugmentSource
		poolSize int
		profile  *Profile
		want     bool
	}{
		{"thin pool no profile", &stubAugmentSource{}, 5, nil, true},
		{"thin pool empty profile", &stubAugmentSource{}, 5, &Profile{}, true},
		{"pool at threshold", &stubAugmentSource{}, 20, nil, false},
		{"moods disqualify", &stubAugmentSource{}, 5, &Profile{Moods: []string{"chill"}}, false},
		{"budget disqualifies", &stubAugmentSource{}, 5, &Profile{Budget: &budget}, false},
		{"social disqualifies", &stubAugmentSource{}, 5, &Profile{Social: "solo"}, false},
		{"embedding disqualifies", &stubAugmentSource{}, 5, &Profile{EmbeddingRef: "u1"}, false},
		{"no source wired", nil, 5, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := newTestEngine(t, nil, Dependencies{Augment: tt.source})
			if got := engine.shouldAugment(tt.poolSize, tt.profile); got != tt.want {
				t.Errorf("shouldAugment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAugmentPool_CapsAndOrder(t *testing.T) {
	t.Parallel()

	intent := testIntention()
	// Seven music events plus one free food event; the per-category cap must
	// keep at most five music entries and the free soon-starting food event
	// must outrank paid later ones.
	pool := make([]CandidateItem, 0, 8)
	for i := 0; i < 7; i++ {
		pool = append(pool, CandidateItem{
			ID:        string(rune('a' + i)),
			Category:  CategoryMusic,
			StartsAt:  testBase.Add(5 * time.Hour),
			PriceBand: PriceMid,
			Venue:     "Club",
		})
	}
	pool = append(pool, CandidateItem{
		ID:        "free-food",
		Category:  CategoryFood,
		StartsAt:  testBase.Add(30 * time.Minute),
		PriceBand: PriceFree,
		Venue:     "Market Hall",
	})

	cfg := DefaultConfig()
	cfg.ColdStart.PerCategoryCap = 5
	engine := newTestEngine(t, cfg, Dependencies{Augment: &stubAugmentSource{pool: pool}})

	trace := &Trace{}
	got := engine.augmentPool(context.Background(), intent, map[string]struct{}{}, trace)

	if len(got) != 6 {
		t.Fatalf("augmentPool() returned %d items, want 6 (5 music + 1 food)", len(got))
	}
	if got[0].ID != "free-food" {
		t.Errorf("top augmented item = %q, want the free soon-starting event", got[0].ID)
	}

	music := 0
	for _, item := range got {
		if item.Category == CategoryMusic {
			music++
		}
	}
	if music != 5 {
		t.Errorf("music items = %d, want capped at 5", music)
	}
}

func TestAugmentPool_TotalCap(t *testing.T) {
	t.Parallel()

	intent := testIntention()
	pool := make([]CandidateItem, 0, 60)
	for i := 0; i < 60; i++ {
		pool = append(pool, CandidateItem{
			ID:       itemID(i),
			Category: Categories[i%len(Categories)],
			StartsAt: testBase.Add(time.Hour),
		})
	}

	engine := newTestEngine(t, nil, Dependencies{Augment: &stubAugmentSource{pool: pool}})
	got := engine.augmentPool(context.Background(), intent, map[string]struct{}{}, &Trace{})

	if len(got) != 30 {
		t.Errorf("augmentPool() returned %d items, want the total cap of 30", len(got))
	}
}

func TestAugmentPool_SkipsDuplicatesAndOutOfWindow(t *testing.T) {
	t.Parallel()

	intent := testIntention()
	pool := []CandidateItem{
		{ID: "dup", Category: CategoryMusic, StartsAt: testBase.Add(time.Hour)},
		{ID: "late", Category: CategoryMusic, StartsAt: testBase.Add(48 * time.Hour)},
		{ID: "ok", Category: CategoryFood, StartsAt: testBase.Add(time.Hour)},
	}

	engine := newTestEngine(t, nil, Dependencies{Augment: &stubAugmentSource{pool: pool}})
	seen := map[string]struct{}{"dup": {}}
	got := engine.augmentPool(context.Background(), intent, seen, &Trace{})

	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("augmentPool() = %+v, want only the in-window non-duplicate", got)
	}
}

func TestAugmentPool_QueryFailureDegrades(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, nil, Dependencies{
		Augment: &stubAugmentSource{err: errors.New("retrieval down")},
	})

	trace := &Trace{}
	got := engine.augmentPool(context.Background(), testIntention(), map[string]struct{}{}, trace)

	if got != nil {
		t.Errorf("augmentPool() = %v, want nil on query failure", got)
	}
	if len(trace.Warnings) != 1 || trace.Warnings[0] != "cold_start_query_failed" {
		t.Errorf("trace warnings = %v, want the cold-start warning", trace.Warnings)
	}
}

func TestTimeToStartPoints_FrontLoaded(t *testing.T) {
	t.Parallel()

	prev := 41.0
	for _, wait := range []time.Duration{
		30 * time.Minute, 2 * time.Hour, 5 * time.Hour, 10 * time.Hour, 20 * time.Hour,
	} {
		got := timeToStartPoints(testBase.Add(wait), testBase)
		if got >= prev {
			t.Errorf("timeToStartPoints(%v) = %v, want strictly decreasing", wait, got)
		}
		prev = got
	}
}

func itemID(i int) string {
	return "item-" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}
