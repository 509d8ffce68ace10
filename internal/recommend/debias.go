// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"math"
	"sort"
)

// debias applies inverse-propensity reweighting against the pool-mean
// popularity and re-sorts descending. Items at exactly the pool mean keep
// their score (propensity 1); over-exposed items are pulled down, unseen ones
// pushed up. alpha 0 is a no-op apart from the sort. The input slice is
// modified in place and returned.
//
// This runs after scoring and before diversification so that items with no
// exposure history are not penalized before they have had a chance to earn
// any.
func debias(items []ScoredCandidate, alpha float64) []ScoredCandidate {
	if len(items) == 0 {
		return items
	}

	if alpha != 0 {
		total := 0.0
		for i := range items {
			total += float64(items[i].Item.Popularity())
		}
		mean := total / float64(len(items))

		for i := range items {
			propensity := (float64(items[i].Item.Popularity()) + 1) / (mean + 1)
			items[i].Score *= math.Pow(propensity, -alpha)
		}
	}

	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Score > items[b].Score
	})
	return items
}
