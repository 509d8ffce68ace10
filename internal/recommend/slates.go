// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"context"
	"sort"
)

// composer assembles the three slates from the debiased pool. The per-slate
// rules are independent and share no mutable state; each slate is built from
// its own view of the pool and carries full factor snapshots.
type composer struct {
	cfg         *Config
	diversifier Diversifier
	reasons     reasonCompiler
}

// Compose builds Best, Wildcard and Close & Easy. Augmented cold-start items
// only ever fill capacity left over after every matched item has been
// placed; they never displace or outrank a match within a slate.
func (c *composer) Compose(ctx context.Context, pool []ScoredCandidate, policy ExplorationPolicy) []Slate {
	slates := make([]Slate, 0, 3)
	slates = append(slates, c.best(ctx, pool))
	slates = append(slates, c.wildcard(pool, policy))
	if c.cfg.CloseEasy.Enabled {
		slates = append(slates, c.closeEasy(pool))
	}
	return slates
}

// best diversifies the pool with MMR down to the configured pool size, then
// keeps the top slate-size items by score.
func (c *composer) best(ctx context.Context, pool []ScoredCandidate) Slate {
	matched, augmented := splitAugmented(pool)

	diversified := c.diversifier.Select(ctx, matched, c.cfg.Diversity.PoolSize)
	sort.SliceStable(diversified, func(a, b int) bool {
		return diversified[a].Score > diversified[b].Score
	})

	picked := truncate(diversified, c.cfg.Diversity.SlateSize)
	picked = fillFrom(picked, augmented, c.cfg.Diversity.SlateSize)
	return c.slate(SlateBest, picked)
}

// wildcard is gated by the resolved policy and keeps items that are both
// novel enough and not scraping the bottom of the pool. An empty result is a
// valid outcome and never falls back to Best's contents.
func (c *composer) wildcard(pool []ScoredCandidate, policy ExplorationPolicy) Slate {
	if !policy.AllowWildcard {
		return Slate{Label: SlateWildcard, Items: []SlateItem{}}
	}

	lo, hi := scoreBounds(pool)
	eligible := func(sc ScoredCandidate) bool {
		if sc.Factors[FactorNovelty] < c.cfg.Wildcard.NoveltyThreshold {
			return false
		}
		return relevance01(sc.Score, lo, hi) >= c.cfg.Wildcard.ScoreFloor
	}

	matched, augmented := splitAugmented(pool)
	picked := make([]ScoredCandidate, 0, c.cfg.Diversity.SlateSize)
	for _, sc := range matched {
		if len(picked) == c.cfg.Diversity.SlateSize {
			break
		}
		if eligible(sc) {
			picked = append(picked, sc)
		}
	}
	for _, sc := range augmented {
		if len(picked) == c.cfg.Diversity.SlateSize {
			break
		}
		if eligible(sc) {
			picked = append(picked, sc)
		}
	}
	return c.slate(SlateWildcard, picked)
}

// closeEasy resorts the full pool by convenience: how close the item is plus
// how well it sits in the time window.
func (c *composer) closeEasy(pool []ScoredCandidate) Slate {
	matched, augmented := splitAugmented(pool)
	byConvenience := func(items []ScoredCandidate) []ScoredCandidate {
		out := make([]ScoredCandidate, len(items))
		copy(out, items)
		sort.SliceStable(out, func(a, b int) bool {
			return convenience(out[a].Factors) > convenience(out[b].Factors)
		})
		return out
	}

	picked := truncate(byConvenience(matched), c.cfg.Diversity.SlateSize)
	picked = fillFrom(picked, byConvenience(augmented), c.cfg.Diversity.SlateSize)
	return c.slate(SlateCloseEasy, picked)
}

func convenience(f FactorScores) float64 {
	return f[FactorDistanceComfort] + f[FactorTimeFit]
}

// slate materializes the picked candidates with 1-based priorities, compiled
// reasons and the full factor snapshot.
func (c *composer) slate(label SlateLabel, picked []ScoredCandidate) Slate {
	items := make([]SlateItem, 0, len(picked))
	for i, sc := range picked {
		items = append(items, SlateItem{
			ID:       sc.Item.ID,
			Priority: i + 1,
			Reasons:  c.reasons.Compile(&sc.Item, sc.Factors),
			Factors:  sc.Factors.Clone(),
			Score:    sc.Score,
		})
	}
	return Slate{Label: label, Items: items}
}

func splitAugmented(pool []ScoredCandidate) (matched, augmented []ScoredCandidate) {
	matched = make([]ScoredCandidate, 0, len(pool))
	for _, sc := range pool {
		if sc.Augmented {
			augmented = append(augmented, sc)
			continue
		}
		matched = append(matched, sc)
	}
	return matched, augmented
}

func fillFrom(picked, extra []ScoredCandidate, size int) []ScoredCandidate {
	for _, sc := range extra {
		if len(picked) >= size {
			break
		}
		picked = append(picked, sc)
	}
	return picked
}

func truncate(items []ScoredCandidate, size int) []ScoredCandidate {
	if len(items) > size {
		return items[:size]
	}
	return items
}

func scoreBounds(pool []ScoredCandidate) (lo, hi float64) {
	if len(pool) == 0 {
		return 0, 0
	}
	lo, hi = pool[0].Score, pool[0].Score
	for _, sc := range pool[1:] {
		if sc.Score < lo {
			lo = sc.Score
		}
		if sc.Score > hi {
			hi = sc.Score
		}
	}
	return lo, hi
}

// relevance01 min-max normalizes a score against the pool bounds. A
// degenerate pool (all scores equal) normalizes to 1 so the floor never
// erases a uniform pool.
func relevance01(score, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return (score - lo) / (hi - lo)
}
