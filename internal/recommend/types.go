// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"context"
	"strings"
	"time"
)

// Note: This package has no dependencies on other internal packages to keep
// the engine embeddable. Collaborators (policy store, similarity provider,
// augment source, trace sink) are plain interfaces injected at construction.

// Category classifies an activity. The set is closed; ParseCategory rejects
// anything outside it.
type Category string

const (
	CategoryMusic     Category = "music"
	CategoryFood      Category = "food"
	CategoryArt       Category = "art"
	CategoryFitness   Category = "fitness"
	CategoryNightlife Category = "nightlife"
	CategoryOutdoors  Category = "outdoors"
	CategoryMarket    Category = "market"
	CategoryFilm      Category = "film"
	CategoryTheater   Category = "theater"
	CategoryWorkshop  Category = "workshop"
	CategoryCommunity Category = "community"
	CategorySports    Category = "sports"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryMusic, CategoryFood, CategoryArt, CategoryFitness,
	CategoryNightlife, CategoryOutdoors, CategoryMarket, CategoryFilm,
	CategoryTheater, CategoryWorkshop, CategoryCommunity, CategorySports,
}

// ParseCategory returns the category matching s (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return known, true
		}
	}
	return "", false
}

// PriceBand is an ordered price classification: Free < Low < Mid < High < Luxe.
type PriceBand int

const (
	PriceFree PriceBand = iota
	PriceLow
	PriceMid
	PriceHigh
	PriceLuxe
)

// String returns the lowercase band name.
func (b PriceBand) String() string {
	switch b {
	case PriceFree:
		return "free"
	case PriceLow:
		return "low"
	case PriceMid:
		return "mid"
	case PriceHigh:
		return "high"
	case PriceLuxe:
		return "luxe"
	default:
		return "unknown"
	}
}

// Valid reports whether b is within the closed enumeration.
func (b PriceBand) Valid() bool {
	return b >= PriceFree && b <= PriceLuxe
}

// ParsePriceBand returns the band matching s (case-insensitive).
func ParsePriceBand(s string) (PriceBand, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return PriceFree, true
	case "low":
		return PriceLow, true
	case "mid":
		return PriceMid, true
	case "high":
		return PriceHigh, true
	case "luxe":
		return PriceLuxe, true
	default:
		return 0, false
	}
}

// MarshalJSON encodes the band as its string name.
func (b PriceBand) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON decodes a band from its string name.
func (b *PriceBand) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, ok := ParsePriceBand(s)
	if !ok {
		return &InvalidPriceBandError{Value: s}
	}
	*b = parsed
	return nil
}

// InvalidPriceBandError reports a price band outside the enumeration.
type InvalidPriceBandError struct {
	Value string
}

func (e *InvalidPriceBandError) Error() string {
	return "invalid price band: " + e.Value
}

// PriceBandFromRange derives a band from a min/max price in the local
// currency. The maximum price drives the band; a zero-cost event is Free.
func PriceBandFromRange(minPrice, maxPrice float64) PriceBand {
	p := maxPrice
	if p < minPrice {
		p = minPrice
	}
	switch {
	case p <= 0:
		return PriceFree
	case p <= 15:
		return PriceLow
	case p <= 40:
		return PriceMid
	case p <= 100:
		return PriceHigh
	default:
		return PriceLuxe
	}
}

// CandidateItem is one recommendable activity instance. Instances are built
// fresh per ranking call by the retrieval collaborator and are immutable
// within the call; the engine never persists them.
type CandidateItem struct {
	// ID is the stable item identifier.
	ID string `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// Category is the closed-enumeration activity category.
	Category Category `json:"category"`

	// StartsAt and EndsAt bound the activity in time.
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`

	// Venue is the venue name, empty if unknown.
	Venue string `json:"venue,omitempty"`

	// Neighborhood is the venue neighborhood, empty if unknown.
	Neighborhood string `json:"neighborhood,omitempty"`

	// City is the city the activity takes place in.
	City string `json:"city,omitempty"`

	// PriceMin and PriceMax bound the entry price.
	PriceMin float64 `json:"price_min"`
	PriceMax float64 `json:"price_max"`

	// PriceBand is derived from PriceMin/PriceMax via PriceBandFromRange.
	PriceBand PriceBand `json:"price_band"`

	// PriceKnown is set by the retrieval layer when the source supplied
	// pricing. Without it a zero PriceMin/PriceMax (and the Free band that
	// falls out of them) reads as "price unknown", not "free".
	PriceKnown bool `json:"price_known,omitempty"`

	// Tags are mood/interest descriptors.
	Tags []string `json:"tags,omitempty"`

	// Description is the free-text description, used only as a quality signal.
	Description string `json:"description,omitempty"`

	// HasImage indicates whether the item carries an image.
	HasImage bool `json:"has_image,omitempty"`

	// Views and Saves are recent-window popularity counters.
	Views int `json:"views"`
	Saves int `json:"saves"`

	// Views24h, Saves24h, Shares24h and Clicks24h are 24-hour engagement
	// counters used by the normalized scoring convention.
	Views24h  int `json:"views_24h,omitempty"`
	Saves24h  int `json:"saves_24h,omitempty"`
	Shares24h int `json:"shares_24h,omitempty"`
	Clicks24h int `json:"clicks_24h,omitempty"`

	// LifetimeViews is the all-time view counter, used for the trending factor.
	LifetimeViews int `json:"lifetime_views,omitempty"`

	// EmbeddingRef identifies a precomputed embedding held by the similarity
	// collaborator. Empty means no embedding is available.
	EmbeddingRef string `json:"embedding_ref,omitempty"`
}

// Popularity returns the recent-window popularity signal used by the
// debiaser. Saves count double since they express stronger intent.
func (c *CandidateItem) Popularity() float64 {
	return float64(c.Views) + 2*float64(c.Saves)
}

// Intention is the structured form of a user's request, produced by an
// upstream parser. The window is half-open: [From, To).
type Intention struct {
	// Goal is the primary goal text.
	Goal string `json:"goal"`

	// From and To bound the acceptable time window. From must not be after To.
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// City is the target city; Neighborhood optionally narrows it.
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood,omitempty"`

	// Exertion is the desired energy level: "low", "high" or empty.
	Exertion string `json:"exertion,omitempty"`

	// Social is the social context: "solo", "date", "friends", "family" or empty.
	Social string `json:"social,omitempty"`

	// Budget is the target budget band, nil when unspecified.
	Budget *PriceBand `json:"budget,omitempty"`

	// Vibes are ordered vibe descriptors, most important first.
	Vibes []string `json:"vibes,omitempty"`

	// Constraints carries free-text constraints, passed through untouched.
	Constraints []string `json:"constraints,omitempty"`

	// EmbeddingRef identifies a precomputed embedding of the goal text.
	EmbeddingRef string `json:"embedding_ref,omitempty"`
}

// Profile is long-lived user signal. Every profile-dependent feature has a
// neutral default when the profile is nil or a field is empty.
type Profile struct {
	// Moods are preferred mood descriptors.
	Moods []string `json:"moods,omitempty"`

	// Dislikes are descriptors the user wants to avoid.
	Dislikes []string `json:"dislikes,omitempty"`

	// Budget is the habitual budget band, nil when unknown.
	Budget *PriceBand `json:"budget,omitempty"`

	// Social is the habitual social style.
	Social string `json:"social,omitempty"`

	// TravelTolerance is "near", "city" or "far"; empty means unknown.
	TravelTolerance string `json:"travel_tolerance,omitempty"`

	// EmbeddingRef identifies a stored preference embedding.
	EmbeddingRef string `json:"embedding_ref,omitempty"`
}

// HasSignal reports whether the profile carries any meaningful signal.
// Any of a stored preference embedding, a non-empty mood list, a budget band
// or a social style counts; such a profile disqualifies cold-start handling.
func (p *Profile) HasSignal() bool {
	if p == nil {
		return false
	}
	return p.EmbeddingRef != "" || len(p.Moods) > 0 || p.Budget != nil || p.Social != ""
}

// ExplorationLevel is the caller-declared appetite for novelty.
type ExplorationLevel string

const (
	ExplorationLow    ExplorationLevel = "low"
	ExplorationMedium ExplorationLevel = "medium"
	ExplorationHigh   ExplorationLevel = "high"
)

// ParseExplorationLevel returns the level matching s, defaulting to medium
// for empty input.
func ParseExplorationLevel(s string) (ExplorationLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ExplorationMedium, true
	case "low":
		return ExplorationLow, true
	case "medium":
		return ExplorationMedium, true
	case "high":
		return ExplorationHigh, true
	default:
		return "", false
	}
}

// ExplorationPolicy controls the Wildcard slate. Three canonical stances map
// to preset parameters; a persisted per-user policy may override them.
type ExplorationPolicy struct {
	// Name identifies the stance ("conservative", "balanced", "adventurous"
	// or a learned per-user name).
	Name string `json:"name"`

	// NoveltyTarget is the desired novelty share in [0, 1].
	NoveltyTarget float64 `json:"novelty_target"`

	// AllowWildcard gates the Wildcard slate.
	AllowWildcard bool `json:"allow_wildcard"`
}

// FactorScores maps factor names to their numeric contribution for one
// (item, intention, profile) triple. It feeds the reason compiler and is
// retained on every slate item for offline evaluation.
type FactorScores map[string]float64

// Factor names shared by both scoring conventions.
const (
	FactorCategoryMatch   = "category_match"
	FactorVibeAlignment   = "vibe_alignment"
	FactorTimeFit         = "time_fit"
	FactorPriceComfort    = "price_comfort"
	FactorSocialFit       = "social_fit"
	FactorDistanceComfort = "distance_comfort"
	FactorNovelty         = "novelty"
	FactorDislikePenalty  = "dislike_penalty"

	// Normalized-convention factors.
	FactorSemanticSimilarity = "semantic_similarity"
	FactorUserSemanticMatch  = "user_semantic_match"
	FactorPopularity         = "popularity"
	FactorQuality            = "quality"
	FactorEngagement         = "engagement"
	FactorTrending           = "trending"
)

// Clone returns an independent copy of the factor map.
func (f FactorScores) Clone() FactorScores {
	if f == nil {
		return nil
	}
	out := make(FactorScores, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ScoredCandidate pairs an item with its score and factor breakdown.
type ScoredCandidate struct {
	// Item is the candidate being scored.
	Item CandidateItem `json:"item"`

	// Score is the combined scalar score after debiasing.
	Score float64 `json:"score"`

	// Factors is the per-factor contribution breakdown.
	Factors FactorScores `json:"factors"`

	// Augmented marks items injected by the cold-start augmenter. Augmented
	// items never displace user-matched candidates in any slate.
	Augmented bool `json:"augmented,omitempty"`
}

// SlateLabel names one of the three result sets.
type SlateLabel string

const (
	SlateBest      SlateLabel = "Best"
	SlateWildcard  SlateLabel = "Wildcard"
	SlateCloseEasy SlateLabel = "Close & Easy"
)

// SlateItem is one entry of a slate.
type SlateItem struct {
	// ID is the candidate item id.
	ID string `json:"id"`

	// Priority is the 1-based rank position within the slate.
	Priority int `json:"priority"`

	// Reasons holds 1-3 strings from the fixed reason vocabulary.
	Reasons []string `json:"reasons"`

	// Factors is the full factor snapshot for the item.
	Factors FactorScores `json:"factor_scores"`

	// Score is the final score the item ranked with.
	Score float64 `json:"score"`
}

// Slate is a labeled, ordered result set. Slates are recomputed from scratch
// every request and never mutated in place.
type Slate struct {
	Label SlateLabel  `json:"label"`
	Items []SlateItem `json:"items"`
}

// Request is the engine input for one ranking call.
type Request struct {
	// Candidates is the retrieval pool. An empty pool is valid and yields
	// three empty slates.
	Candidates []CandidateItem `json:"candidates"`

	// Intention is the structured user intention.
	Intention Intention `json:"intention"`

	// Profile is the long-lived user signal, nil for anonymous users.
	Profile *Profile `json:"profile,omitempty"`

	// UserID keys the persisted-policy lookup; empty skips it.
	UserID string `json:"user_id,omitempty"`

	// ExplorationLevel is the caller-declared exploration stance, used when
	// no persisted per-user policy exists.
	ExplorationLevel ExplorationLevel `json:"exploration_level,omitempty"`

	// Weights optionally overrides the configured weight set for this call.
	// Overrides are validated with the same invariants as configured weights.
	Weights FeatureWeights `json:"weights,omitempty"`

	// TraceID correlates the call across collaborators; generated if empty.
	TraceID string `json:"trace_id,omitempty"`
}

// Response is the engine output: the three slates plus the policy that
// gated the Wildcard slate.
type Response struct {
	Slates     []Slate           `json:"slates"`
	PolicyUsed ExplorationPolicy `json:"policy_used"`
}

// Slate returns the slate with the given label, or nil.
func (r *Response) Slate(label SlateLabel) *Slate {
	for i := range r.Slates {
		if r.Slates[i].Label == label {
			return &r.Slates[i]
		}
	}
	return nil
}

// PolicyStore returns a persisted exploration policy for a user, or nil when
// none exists. Implementations own their transport; the engine bounds each
// lookup with a timeout and falls back to the static presets on any failure.
type PolicyStore interface {
	PolicyFor(ctx context.Context, userID string) (*ExplorationPolicy, error)
}

// SimilarityProvider exposes precomputed embeddings and a similarity metric.
// The engine never computes embeddings itself.
type SimilarityProvider interface {
	// EmbeddingOf resolves a reference to its vector; ok is false when the
	// reference is unknown or empty.
	EmbeddingOf(ctx context.Context, ref string) (vec []float32, ok bool)

	// Similarity returns a similarity in [-1, 1] for two vectors.
	Similarity(a, b []float32) float64
}

// AugmentSource supplies the generic secondary pool for cold-start
// augmentation: same window and city, no personalization filter.
type AugmentSource interface {
	GenericPool(ctx context.Context, city string, from, to time.Time) ([]CandidateItem, error)
}

// Trace is the fire-and-forget record handed to the TraceSink after each
// ranking call.
type Trace struct {
	TraceID        string            `json:"trace_id"`
	Policy         ExplorationPolicy `json:"policy"`
	PolicyFallback bool              `json:"policy_fallback"`
	ProfileUsed    bool              `json:"profile_used"`
	ColdStart      bool              `json:"cold_start"`
	Scored         int               `json:"scored"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// TraceSink records ranking traces. Sink failures never affect the returned
// slates; the engine invokes it asynchronously and discards errors.
type TraceSink interface {
	Record(ctx context.Context, t Trace) error
}

// Diversifier re-orders a score-sorted pool trading relevance against
// redundancy. The rerank subpackage provides the MMR implementation.
type Diversifier interface {
	// Name returns the diversifier identifier (e.g. "mmr").
	Name() string

	// Select returns up to k items chosen from the score-sorted input.
	Select(ctx context.Context, items []ScoredCandidate, k int) []ScoredCandidate
}
