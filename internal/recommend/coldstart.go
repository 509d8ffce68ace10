// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"context"
	"sort"
	"time"
)

// Category-breadth bonus: broadly accessible categories rank higher in a
// generic pool than specialized ones.
var coldStartCategoryBonus = map[Category]float64{
	CategoryMusic:     20,
	CategoryFood:      20,
	CategoryOutdoors:  18,
	CategoryMarket:    16,
	CategoryCommunity: 16,
	CategoryArt:       14,
	CategoryFilm:      12,
	CategoryTheater:   12,
	CategoryNightlife: 10,
	CategoryFitness:   8,
	CategoryWorkshop:  8,
	CategorySports:    10,
}

// shouldAugment reports whether the cold-start trigger fires: a thin matched
// pool combined with no meaningful profile signal. Any stored signal — an
// embedding, moods, a budget band, a social style — disqualifies cold-start.
func (e *Engine) shouldAugment(poolSize int, profile *Profile) bool {
	if e.augment == nil {
		return false
	}
	return poolSize < e.cfg.ColdStart.MinPool && !profile.HasSignal()
}

// augmentPool queries the generic secondary pool under a bounded timeout,
// scores it on pure accessibility (no personalization), applies the
// per-category and total caps, and returns the selection in descending
// accessibility order. Query failure degrades to no augmentation with a
// trace warning; it never fails the ranking call.
func (e *Engine) augmentPool(ctx context.Context, intent *Intention, seen map[string]struct{}, trace *Trace) []CandidateItem {
	queryCtx, cancel := context.WithTimeout(ctx, e.cfg.ColdStart.QueryTimeout)
	defer cancel()

	generic, err := e.augment.GenericPool(queryCtx, intent.City, intent.From, intent.To)
	if err != nil {
		e.logger.Warn().Err(err).Str("city", intent.City).
			Msg("Cold-start pool query failed, continuing without augmentation")
		trace.Warnings = append(trace.Warnings, "cold_start_query_failed")
		return nil
	}

	type rated struct {
		item  CandidateItem
		score float64
	}
	pool := make([]rated, 0, len(generic))
	for i := range generic {
		item := generic[i]
		if _, dup := seen[item.ID]; dup {
			continue
		}
		if !withinWindow(&item, intent) {
			continue
		}
		pool = append(pool, rated{item: item, score: accessibilityScore(&item, intent)})
	}

	sort.SliceStable(pool, func(a, b int) bool {
		return pool[a].score > pool[b].score
	})

	perCategory := make(map[Category]int)
	out := make([]CandidateItem, 0, e.cfg.ColdStart.TotalCap)
	for _, r := range pool {
		if len(out) >= e.cfg.ColdStart.TotalCap {
			break
		}
		if perCategory[r.item.Category] >= e.cfg.ColdStart.PerCategoryCap {
			continue
		}
		perCategory[r.item.Category]++
		out = append(out, r.item)
	}
	return out
}

// accessibilityScore rates a generic-pool item without any personalization:
// starting soon, cheap, broadly appealing and well-described wins.
func accessibilityScore(item *CandidateItem, intent *Intention) float64 {
	score := timeToStartPoints(item.StartsAt, intent.From)
	score += priceAccessibilityPoints(item.PriceBand)
	score += coldStartCategoryBonus[item.Category]
	if item.Venue != "" {
		score += 10
	}
	return score
}

// timeToStartPoints is front-loaded: something starting within the hour beats
// something tomorrow.
func timeToStartPoints(startsAt, from time.Time) float64 {
	switch wait := startsAt.Sub(from); {
	case wait <= time.Hour:
		return 40
	case wait <= 3*time.Hour:
		return 30
	case wait <= 6*time.Hour:
		return 20
	case wait <= 12*time.Hour:
		return 12
	default:
		return 5
	}
}

func priceAccessibilityPoints(band PriceBand) float64 {
	switch band {
	case PriceFree:
		return 30
	case PriceLow:
		return 22
	case PriceMid:
		return 14
	case PriceHigh:
		return 6
	default:
		return 2
	}
}
