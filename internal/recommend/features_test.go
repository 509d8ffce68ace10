// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"context"
	"math"
	"testing"
	"time"
)

var testBase = time.Date(2026, time.March, 14, 18, 0, 0, 0, time.UTC)

func testIntention() *Intention {
	return &Intention{
		Goal: "live music tonight",
		From: testBase,
		To:   testBase.Add(8 * time.Hour),
		City: "Lisbon",
	}
}

func TestTimeFitPoints(t *testing.T) {
	t.Parallel()

	intent := testIntention()
	tests := []struct {
		name     string
		startsAt time.Time
		want     float64
	}{
		{"before window", testBase.Add(-time.Hour), 0},
		{"at window end", testBase.Add(8 * time.Hour), 0},
		{"after window", testBase.Add(9 * time.Hour), 0},
		{"first quartile", testBase.Add(30 * time.Minute), 20},
		{"exactly at from", testBase, 20},
		{"second quartile", testBase.Add(2*time.Hour + 5*time.Minute), 15},
		{"third quartile", testBase.Add(4*time.Hour + 30*time.Minute), 10},
		{"fourth quartile", testBase.Add(7 * time.Hour), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			item := &CandidateItem{StartsAt: tt.startsAt}
			if got := timeFitPoints(item, intent); got != tt.want {
				t.Errorf("timeFitPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeFitPoints_ZeroWindow(t *testing.T) {
	t.Parallel()

	intent := &Intention{From: testBase, To: testBase}
	item := &CandidateItem{StartsAt: testBase}
	if got := timeFitPoints(item, intent); got != 0 {
		t.Errorf("timeFitPoints() with zero window = %v, want 0", got)
	}
}

func TestCategoryMatchPoints(t *testing.T) {
	t.Parallel()

	intent := testIntention()
	tests := []struct {
		name     string
		category Category
		title    string
		want     float64
	}{
		{"category and keyword", CategoryMusic, "Live Jazz at the Cellar", 30},
		{"category only", CategoryMusic, "Quartet Evening", 22},
		{"keyword only", CategoryFood, "Music Bingo Dinner", 12},
		{"no match floor", CategoryFood, "Pasta Night", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			item := &CandidateItem{Category: tt.category, Title: tt.title}
			if got := categoryMatchPoints(item, intent); got != tt.want {
				t.Errorf("categoryMatchPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVibeAlignmentPoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		item   CandidateItem
		intent Intention
		want   float64
	}{
		{
			name:   "tag match",
			item:   CandidateItem{Tags: []string{"energetic"}},
			intent: Intention{Vibes: []string{"energetic"}},
			want:   6,
		},
		{
			name:   "title match weighs less",
			item:   CandidateItem{Title: "Cozy Listening Bar"},
			intent: Intention{Vibes: []string{"cozy"}},
			want:   3,
		},
		{
			name:   "exertion bonus on energy tag",
			item:   CandidateItem{Tags: []string{"energetic"}},
			intent: Intention{Vibes: []string{"energetic"}, Exertion: "high"},
			want:   11,
		},
		{
			name:   "low exertion bonus",
			item:   CandidateItem{Tags: []string{"chill"}},
			intent: Intention{Exertion: "low"},
			want:   5,
		},
		{
			name: "capped at budget",
			item: CandidateItem{Tags: []string{"a", "b", "c", "d", "e"}},
			intent: Intention{
				Vibes: []string{"a", "b", "c", "d", "e"},
			},
			want: 25,
		},
		{"no vibes", CandidateItem{}, Intention{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := vibeAlignmentPoints(&tt.item, &tt.intent); got != tt.want {
				t.Errorf("vibeAlignmentPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriceComfortPoints(t *testing.T) {
	t.Parallel()

	low := PriceLow
	mid := PriceMid
	tests := []struct {
		name    string
		band    PriceBand
		intent  Intention
		profile *Profile
		want    float64
	}{
		{"free always max", PriceFree, Intention{Budget: ptrBand(PriceLuxe)}, nil, 15},
		{"exact band", PriceLow, Intention{Budget: &low}, nil, 15},
		{"one band off", PriceMid, Intention{Budget: &low}, nil, 10},
		{"two bands off", PriceHigh, Intention{Budget: &low}, nil, 5},
		{"three bands off", PriceLuxe, Intention{Budget: &low}, nil, 2},
		{"profile budget fallback", PriceMid, Intention{}, &Profile{Budget: &mid}, 15},
		{"no budget neutral", PriceMid, Intention{}, nil, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			item := &CandidateItem{PriceBand: tt.band}
			if got := priceComfortPoints(item, &tt.intent, tt.profile); got != tt.want {
				t.Errorf("priceComfortPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSocialFitPoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		item   CandidateItem
		social string
		want   float64
	}{
		{"date keyword in title", CandidateItem{Title: "Candlelit Wine Tasting"}, "date", 10},
		{"friends keyword in tags", CandidateItem{Tags: []string{"trivia"}}, "friends", 10},
		{"no hit neutral", CandidateItem{Title: "Morning Run Club"}, "date", 5},
		{"no context neutral", CandidateItem{Title: "Anything"}, "", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			intent := &Intention{Social: tt.social}
			if got := socialFitPoints(&tt.item, intent); got != tt.want {
				t.Errorf("socialFitPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceComfort(t *testing.T) {
	t.Parallel()

	x := &extractor{mode: ModePoints}
	intent := &Intention{City: "Lisbon", Neighborhood: "Alfama"}

	tests := []struct {
		name string
		item CandidateItem
		want float64
	}{
		{"same neighborhood", CandidateItem{City: "Lisbon", Neighborhood: "Alfama"}, 10},
		{"same city", CandidateItem{City: "Lisbon", Neighborhood: "Belem"}, 5},
		{"unknown city treated as local", CandidateItem{}, 5},
		{"different city", CandidateItem{City: "Porto"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := x.distanceComfort(&tt.item, intent); got != tt.want {
				t.Errorf("distanceComfort() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNoveltyAndDislike(t *testing.T) {
	t.Parallel()

	t.Run("unseen item fully novel", func(t *testing.T) {
		t.Parallel()
		if got := noveltyOf(&CandidateItem{}); got != 1 {
			t.Errorf("noveltyOf() = %v, want 1", got)
		}
	})

	t.Run("heavy exposure approaches zero", func(t *testing.T) {
		t.Parallel()
		got := noveltyOf(&CandidateItem{Views: 5000, Saves: 1000})
		if got > 0.05 {
			t.Errorf("noveltyOf() = %v, want near 0", got)
		}
	})

	t.Run("dislike in tags", func(t *testing.T) {
		t.Parallel()
		p := &Profile{Dislikes: []string{"crowds"}}
		if got := dislikePenalty(&CandidateItem{Tags: []string{"crowds"}}, p); got != 1 {
			t.Errorf("dislikePenalty() = %v, want 1", got)
		}
	})

	t.Run("dislike in title", func(t *testing.T) {
		t.Parallel()
		p := &Profile{Dislikes: []string{"karaoke"}}
		if got := dislikePenalty(&CandidateItem{Title: "Karaoke Night"}, p); got != 1 {
			t.Errorf("dislikePenalty() = %v, want 1", got)
		}
	})

	t.Run("nil profile", func(t *testing.T) {
		t.Parallel()
		if got := dislikePenalty(&CandidateItem{Tags: []string{"crowds"}}, nil); got != 0 {
			t.Errorf("dislikePenalty() = %v, want 0", got)
		}
	})
}

func TestExtract_PointMode(t *testing.T) {
	t.Parallel()

	x := &extractor{mode: ModePoints}
	intent := testIntention()
	item := &CandidateItem{
		ID:       "e1",
		Title:    "Live Jazz at the Cellar",
		Category: CategoryMusic,
		StartsAt: testBase.Add(time.Hour),
		City:     "Lisbon",
	}

	f := x.Extract(context.Background(), item, intent, nil)

	for _, factor := range []string{
		FactorCategoryMatch, FactorVibeAlignment, FactorTimeFit,
		FactorPriceComfort, FactorSocialFit, FactorDistanceComfort,
		FactorNovelty, FactorDislikePenalty,
	} {
		if _, ok := f[factor]; !ok {
			t.Errorf("Extract() missing factor %q", factor)
		}
	}
	if _, ok := f[FactorPopularity]; ok {
		t.Error("Extract() in point mode must not emit the popularity factor")
	}
	if f[FactorCategoryMatch] != 30 {
		t.Errorf("category_match = %v, want 30", f[FactorCategoryMatch])
	}
	if f[FactorTimeFit] != 20 {
		t.Errorf("time_fit = %v, want 20", f[FactorTimeFit])
	}
}

func TestExtract_NormalizedMode(t *testing.T) {
	t.Parallel()

	x := &extractor{mode: ModeNormalized}
	intent := testIntention()
	item := &CandidateItem{
		ID:          "e1",
		Title:       "Live Jazz at the Cellar",
		Category:    CategoryMusic,
		StartsAt:    testBase.Add(time.Hour),
		Venue:       "The Cellar",
		Description: "An intimate jazz set.",
		HasImage:    true,
		PriceMax:    12,
		Views24h:    50,
		LifetimeViews: 100,
	}

	f := x.Extract(context.Background(), item, intent, nil)

	for name, value := range f {
		if value < 0 || value > 1 {
			t.Errorf("factor %q = %v, want within [0, 1]", name, value)
		}
	}
	if f[FactorQuality] != 1 {
		t.Errorf("quality = %v, want 1 for a fully described item", f[FactorQuality])
	}
	if f[FactorTrending] != 0.5 {
		t.Errorf("trending = %v, want 0.5", f[FactorTrending])
	}
	if f[FactorSemanticSimilarity] != 0 {
		t.Errorf("semantic_similarity = %v, want 0 without a provider", f[FactorSemanticSimilarity])
	}
}

func TestQuality01(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		item CandidateItem
		want float64
	}{
		{"bare item", CandidateItem{}, 0},
		{"image only", CandidateItem{HasImage: true}, 0.25},
		{"unpriced free band is not price info", CandidateItem{PriceBand: PriceFree}, 0},
		{"explicit free counts as price info", CandidateItem{PriceKnown: true, PriceBand: PriceFree}, 0.25},
		{"nonzero price counts without the flag", CandidateItem{PriceMin: 5, PriceMax: 15}, 0.25},
		{
			"complete",
			CandidateItem{HasImage: true, Description: "d", Venue: "v", PriceMax: 10},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := quality01(&tt.item); got != tt.want {
				t.Errorf("quality01() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrending01(t *testing.T) {
	t.Parallel()

	if got := trending01(&CandidateItem{Views24h: 10}); got != 0 {
		t.Errorf("trending01() without lifetime views = %v, want 0", got)
	}
	if got := trending01(&CandidateItem{Views24h: 300, LifetimeViews: 100}); got != 1 {
		t.Errorf("trending01() = %v, want capped at 1", got)
	}
}

// stubSimilarity is a SimilarityProvider with a fixed vector table.
type stubSimilarity struct {
	vectors map[string][]float32
}

func (s *stubSimilarity) EmbeddingOf(_ context.Context, ref string) ([]float32, bool) {
	v, ok := s.vectors[ref]
	return v, ok
}

func (s *stubSimilarity) Similarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbeddingSimilarity(t *testing.T) {
	t.Parallel()

	x := &extractor{
		mode: ModeNormalized,
		similarity: &stubSimilarity{vectors: map[string][]float32{
			"a": {1, 0},
			"b": {1, 0},
			"c": {-1, 0},
		}},
	}

	if got := x.embeddingSimilarity(context.Background(), "a", "b"); got != 1 {
		t.Errorf("embeddingSimilarity(identical) = %v, want 1", got)
	}
	if got := x.embeddingSimilarity(context.Background(), "a", "c"); got != 0 {
		t.Errorf("embeddingSimilarity(opposite) = %v, want clamped to 0", got)
	}
	if got := x.embeddingSimilarity(context.Background(), "a", "missing"); got != 0 {
		t.Errorf("embeddingSimilarity(missing ref) = %v, want 0", got)
	}
	if got := x.embeddingSimilarity(context.Background(), "", "b"); got != 0 {
		t.Errorf("embeddingSimilarity(empty ref) = %v, want 0", got)
	}
}

func ptrBand(b PriceBand) *PriceBand {
	return &b
}
