// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"context"
	"math"
	"strings"
)

// Point budgets for the raw-point convention.
const (
	maxCategoryPoints = 30.0
	maxVibePoints     = 25.0
	maxTimePoints     = 20.0
	maxPricePoints    = 15.0
	maxSocialPoints   = 10.0
	maxDistancePoints = 10.0
)

// factorMaxima returns the maximum value each factor can take under the
// given mode. The scorer divides by these to normalize before weighting, and
// weight validation uses the key set to reject unknown factor names.
func factorMaxima(mode ScoringMode) map[string]float64 {
	if mode == ModePoints {
		return map[string]float64{
			FactorCategoryMatch:   maxCategoryPoints,
			FactorVibeAlignment:   maxVibePoints,
			FactorTimeFit:         maxTimePoints,
			FactorPriceComfort:    maxPricePoints,
			FactorSocialFit:       maxSocialPoints,
			FactorDistanceComfort: maxDistancePoints,
			FactorNovelty:         1,
			FactorDislikePenalty:  1,
		}
	}
	return map[string]float64{
		FactorCategoryMatch:      1,
		FactorSemanticSimilarity: 1,
		FactorUserSemanticMatch:  1,
		FactorPopularity:         1,
		FactorTimeFit:            1,
		FactorQuality:            1,
		FactorEngagement:         1,
		FactorTrending:           1,
		FactorDistanceComfort:    1,
		FactorNovelty:            1,
		FactorDislikePenalty:     1,
	}
}

// categoryKeywords maps each category to the goal-text keywords that imply
// it. Matching is case-insensitive on whole tokens.
var categoryKeywords = map[Category][]string{
	CategoryMusic:     {"music", "concert", "gig", "band", "dj", "show", "jazz", "live"},
	CategoryFood:      {"food", "dinner", "eat", "restaurant", "brunch", "tasting", "lunch"},
	CategoryArt:       {"art", "gallery", "exhibit", "exhibition", "museum"},
	CategoryFitness:   {"fitness", "workout", "yoga", "run", "gym", "climb", "pilates"},
	CategoryNightlife: {"nightlife", "bar", "club", "drinks", "cocktail", "party"},
	CategoryOutdoors:  {"outdoors", "hike", "park", "walk", "picnic", "nature"},
	CategoryMarket:    {"market", "fair", "flea", "bazaar", "vintage"},
	CategoryFilm:      {"film", "movie", "cinema", "screening"},
	CategoryTheater:   {"theater", "theatre", "play", "comedy", "improv", "standup"},
	CategoryWorkshop:  {"workshop", "class", "learn", "course", "craft"},
	CategoryCommunity: {"community", "meetup", "volunteer", "social"},
	CategorySports:    {"sports", "game", "match", "tournament", "watch"},
}

// Energy descriptor sets for the exertion bonus.
var (
	highEnergyTags = []string{"energetic", "intense", "active", "dance", "workout", "loud"}
	lowEnergyTags  = []string{"chill", "relaxed", "calm", "cozy", "quiet", "mellow"}
)

// Social context keywords matched against title and tags.
var socialKeywords = map[string][]string{
	"solo":    {"solo", "drop-in", "open", "workshop", "class"},
	"date":    {"date", "romantic", "intimate", "wine", "candlelit", "jazz"},
	"friends": {"group", "party", "trivia", "games", "social", "crawl"},
	"family":  {"family", "kids", "all-ages", "matinee"},
}

// extractor computes the per-item factor map. It is a pure function of
// (item, intention, profile) plus embedding lookups through the similarity
// collaborator; a failed or missing lookup contributes zero, never an error.
type extractor struct {
	mode       ScoringMode
	similarity SimilarityProvider
}

// Extract computes the factor map for one candidate under the configured
// convention. The distance, novelty and dislike factors are computed in both
// modes: the slate composer depends on them regardless of which convention
// drives the combined score.
func (x *extractor) Extract(ctx context.Context, item *CandidateItem, intent *Intention, profile *Profile) FactorScores {
	f := FactorScores{
		FactorDistanceComfort: x.distanceComfort(item, intent),
		FactorNovelty:         noveltyOf(item),
		FactorDislikePenalty:  dislikePenalty(item, profile),
	}

	if x.mode == ModePoints {
		f[FactorCategoryMatch] = categoryMatchPoints(item, intent)
		f[FactorVibeAlignment] = vibeAlignmentPoints(item, intent)
		f[FactorTimeFit] = timeFitPoints(item, intent)
		f[FactorPriceComfort] = priceComfortPoints(item, intent, profile)
		f[FactorSocialFit] = socialFitPoints(item, intent)
		return f
	}

	f[FactorCategoryMatch] = categoryMatchPoints(item, intent) / maxCategoryPoints
	f[FactorSemanticSimilarity] = x.embeddingSimilarity(ctx, intent.EmbeddingRef, item.EmbeddingRef)
	f[FactorUserSemanticMatch] = x.profileSimilarity(ctx, profile, item)
	f[FactorPopularity] = popularity01(item)
	f[FactorTimeFit] = timeFitPoints(item, intent) / maxTimePoints
	f[FactorQuality] = quality01(item)
	f[FactorEngagement] = engagement01(item)
	f[FactorTrending] = trending01(item)
	return f
}

// categoryMatchPoints implements the tiered category rule: exact
// category+keyword hit highest, category-only lower, title-keyword-only
// lowest non-zero, otherwise a small floor.
func categoryMatchPoints(item *CandidateItem, intent *Intention) float64 {
	tokens := goalTokens(intent.Goal)
	wanted := categoriesFromTokens(tokens)
	titleHit := titleKeywordHit(item.Title, tokens)
	_, categoryHit := wanted[item.Category]

	switch {
	case categoryHit && titleHit:
		return 30
	case categoryHit:
		return 22
	case titleHit:
		return 12
	default:
		return 4
	}
}

// vibeAlignmentPoints counts vibe descriptors matched in tags (weighted)
// plus title substring matches (lower weight), with an exertion bonus when
// the item's tags hit the recognized energy descriptor set.
func vibeAlignmentPoints(item *CandidateItem, intent *Intention) float64 {
	points := 0.0
	title := strings.ToLower(item.Title)

	for _, vibe := range intent.Vibes {
		v := strings.ToLower(strings.TrimSpace(vibe))
		if v == "" {
			continue
		}
		switch {
		case hasTag(item.Tags, v):
			points += 6
		case strings.Contains(title, v):
			points += 3
		}
	}

	if bonus := exertionBonus(item, intent.Exertion); bonus > 0 {
		points += bonus
	}

	return math.Min(points, maxVibePoints)
}

func exertionBonus(item *CandidateItem, exertion string) float64 {
	var set []string
	switch strings.ToLower(exertion) {
	case "high":
		set = highEnergyTags
	case "low":
		set = lowEnergyTags
	default:
		return 0
	}
	for _, tag := range set {
		if hasTag(item.Tags, tag) {
			return 5
		}
	}
	return 0
}

// timeFitPoints is a step function over the quartile of the window the item
// starts in, front-loaded to reward immediacy. Items outside [From, To) are
// always zero.
func timeFitPoints(item *CandidateItem, intent *Intention) float64 {
	if item.StartsAt.Before(intent.From) || !item.StartsAt.Before(intent.To) {
		return 0
	}
	window := intent.To.Sub(intent.From)
	if window <= 0 {
		return 0
	}
	elapsed := item.StartsAt.Sub(intent.From)
	switch quartile := int(4 * elapsed / window); quartile {
	case 0:
		return 20
	case 1:
		return 15
	case 2:
		return 10
	default:
		return 6
	}
}

// priceComfortPoints scores the absolute rank distance between the item's
// price band and the target budget band. Free is always maximal; without a
// budget from intention or profile the factor is a neutral mid-value.
func priceComfortPoints(item *CandidateItem, intent *Intention, profile *Profile) float64 {
	if item.PriceBand == PriceFree {
		return maxPricePoints
	}

	target := intent.Budget
	if target == nil && profile != nil {
		target = profile.Budget
	}
	if target == nil {
		return 8
	}

	switch dist := absInt(int(item.PriceBand) - int(*target)); dist {
	case 0:
		return 15
	case 1:
		return 10
	case 2:
		return 5
	default:
		return 2
	}
}

// socialFitPoints matches the intention's social-context keywords against
// the item title and tags; no context or no hit is a neutral mid-value.
func socialFitPoints(item *CandidateItem, intent *Intention) float64 {
	keywords, ok := socialKeywords[strings.ToLower(intent.Social)]
	if !ok {
		return 5
	}
	title := strings.ToLower(item.Title)
	for _, kw := range keywords {
		if strings.Contains(title, kw) || hasTag(item.Tags, kw) {
			return maxSocialPoints
		}
	}
	return 5
}

// distanceComfort rewards staying close: same neighborhood is best, same
// city acceptable, anything else low. Unknown locations land in the middle
// rather than penalizing items with sparse data.
func (x *extractor) distanceComfort(item *CandidateItem, intent *Intention) float64 {
	n := maxDistancePoints
	if x.mode == ModeNormalized {
		n = 1
	}
	switch {
	case intent.Neighborhood != "" && strings.EqualFold(item.Neighborhood, intent.Neighborhood):
		return n
	case item.City == "" || strings.EqualFold(item.City, intent.City):
		return 0.5 * n
	default:
		return 0.2 * n
	}
}

// noveltyOf is the inverse of log-scaled recent popularity in [0, 1]:
// an unseen item scores 1, a heavily exposed one approaches 0.
func noveltyOf(item *CandidateItem) float64 {
	return 1 - popularity01(item)
}

// dislikePenalty is 1 when any profile dislike appears in the item's tags or
// title, 0 otherwise. It is the single permitted negative-weighted factor.
func dislikePenalty(item *CandidateItem, profile *Profile) float64 {
	if profile == nil {
		return 0
	}
	title := strings.ToLower(item.Title)
	for _, dislike := range profile.Dislikes {
		d := strings.ToLower(strings.TrimSpace(dislike))
		if d == "" {
			continue
		}
		if hasTag(item.Tags, d) || strings.Contains(title, d) {
			return 1
		}
	}
	return 0
}

// popularity01 is the log-scaled recent view/save combination capped at 1.
// The scale constant pins ~1000 weighted interactions to full popularity.
func popularity01(item *CandidateItem) float64 {
	const scale = 1000
	return math.Min(1, math.Log1p(item.Popularity())/math.Log1p(scale))
}

// engagement01 is the log-scaled 24h view/save/share/click combination.
func engagement01(item *CandidateItem) float64 {
	const scale = 500
	weighted := float64(item.Views24h) + 2*float64(item.Saves24h) +
		3*float64(item.Shares24h) + float64(item.Clicks24h)
	return math.Min(1, math.Log1p(weighted)/math.Log1p(scale))
}

// trending01 is the share of lifetime views earned in the last 24h, capped
// at 1. Items with no lifetime views are not trending.
func trending01(item *CandidateItem) float64 {
	if item.LifetimeViews <= 0 {
		return 0
	}
	return math.Min(1, float64(item.Views24h)/float64(item.LifetimeViews))
}

// quality01 rewards data completeness a quarter-weight each: image,
// description, venue and price information present.
func quality01(item *CandidateItem) float64 {
	q := 0.0
	if item.HasImage {
		q += 0.25
	}
	if item.Description != "" {
		q += 0.25
	}
	if item.Venue != "" {
		q += 0.25
	}
	if item.PriceKnown || item.PriceMin > 0 || item.PriceMax > 0 {
		q += 0.25
	}
	return q
}

// embeddingSimilarity resolves both references and returns their cosine
// clamped to [0, 1]; any missing piece contributes zero.
func (x *extractor) embeddingSimilarity(ctx context.Context, refA, refB string) float64 {
	if x.similarity == nil || refA == "" || refB == "" {
		return 0
	}
	a, ok := x.similarity.EmbeddingOf(ctx, refA)
	if !ok {
		return 0
	}
	b, ok := x.similarity.EmbeddingOf(ctx, refB)
	if !ok {
		return 0
	}
	return math.Max(0, x.similarity.Similarity(a, b))
}

func (x *extractor) profileSimilarity(ctx context.Context, profile *Profile, item *CandidateItem) float64 {
	if profile == nil {
		return 0
	}
	return x.embeddingSimilarity(ctx, profile.EmbeddingRef, item.EmbeddingRef)
}

// goalTokens lowercases and splits the goal text into alphanumeric tokens of
// three or more characters, dropping stopwords.
func goalTokens(goal string) []string {
	fields := strings.FieldsFunc(strings.ToLower(goal), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, t := range fields {
		if len(t) < 3 || goalStopwords[t] {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

var goalStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "some": true,
	"something": true, "tonight": true, "today": true, "want": true,
	"near": true, "around": true, "this": true, "that": true,
}

func categoriesFromTokens(tokens []string) map[Category]struct{} {
	wanted := make(map[Category]struct{})
	for _, token := range tokens {
		for cat, keywords := range categoryKeywords {
			for _, kw := range keywords {
				if token == kw {
					wanted[cat] = struct{}{}
					break
				}
			}
		}
	}
	return wanted
}

func titleKeywordHit(title string, tokens []string) bool {
	t := strings.ToLower(title)
	for _, token := range tokens {
		if strings.Contains(t, token) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(strings.TrimSpace(tag), want) {
			return true
		}
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// withinWindow reports whether the item starts inside [From, To).
func withinWindow(item *CandidateItem, intent *Intention) bool {
	return !item.StartsAt.Before(intent.From) && item.StartsAt.Before(intent.To)
}
