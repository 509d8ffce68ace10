// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

// Package rerank implements post-processing algorithms for slate diversity.
package rerank

import (
	"context"

	"github.com/sortie-app/sortie/internal/recommend"
)

// maxSelectSize caps k before allocation; k is also bounded by len(items).
const maxSelectSize = 10000

// MMR implements Maximal Marginal Relevance selection over event candidates.
// It balances relevance and diversity by iteratively selecting items that
// are both well-scored and dissimilar to already selected items.
//
// The MMR formula is:
//
//	MMR = argmax[lambda * rel(i) - (1-lambda) * max(sim(i, s)) for s in selected]
//
// Where:
//   - lambda: balance parameter (1.0 = pure relevance, 0.0 = pure diversity)
//   - rel(i): pool-normalized relevance for item i
//   - sim(i, s): event similarity between item i and selected item s
//
// Event similarity is a weighted attribute overlap: same category 0.4, same
// venue 0.3, same calendar day 0.2, same price band 0.1. Two copies of the
// same kind of night out are near-duplicates; two events sharing only a
// price band barely overlap.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMR struct {
	// Lambda balances relevance vs. diversity (0.0 to 1.0)
	lambda float64
}

// NewMMR creates a new MMR selector.
func NewMMR(lambda float64) *MMR {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	return &MMR{lambda: lambda}
}

// Name returns the selector identifier.
func (m *MMR) Name() string {
	return "mmr"
}

// Select greedily picks k diverse items from the score-sorted input. Ties on
// the MMR objective keep the earlier (higher-scored) item, so lambda=1.0
// reproduces plain top-k exactly.
//
//nolint:gocritic // rangeValCopy: ScoredCandidate passed by value in range, acceptable for clarity
func (m *MMR) Select(ctx context.Context, items []recommend.ScoredCandidate, k int) []recommend.ScoredCandidate {
	if len(items) == 0 || k <= 0 {
		return nil
	}

	// Bound k to prevent excessive memory allocation
	if k > maxSelectSize {
		k = maxSelectSize
	}
	if k > len(items) {
		k = len(items)
	}

	// Early return if lambda is 1.0 (pure relevance)
	if m.lambda >= 1.0 {
		out := make([]recommend.ScoredCandidate, k)
		copy(out, items[:k])
		return out
	}

	relevance := normalizeRelevance(items)
	similarities := buildSimilarityMatrix(items)

	// Greedy MMR selection
	selected := make([]recommend.ScoredCandidate, 0, k)
	selectedIndices := make(map[int]struct{}, k)

	for len(selected) < k {
		if ctx.Err() != nil {
			break
		}

		bestIdx := -1
		bestMMR := 0.0

		for i := range items {
			if _, ok := selectedIndices[i]; ok {
				continue
			}

			maxSim := 0.0
			for j := range selectedIndices {
				if sim := similarities[i][j]; sim > maxSim {
					maxSim = sim
				}
			}

			mmrScore := m.lambda*relevance[i] - (1-m.lambda)*maxSim

			if bestIdx < 0 || mmrScore > bestMMR {
				bestMMR = mmrScore
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}

		selected = append(selected, items[bestIdx])
		selectedIndices[bestIdx] = struct{}{}
	}

	return selected
}

// normalizeRelevance min-max scales scores into [0, 1] so lambda trades off
// against a similarity term of the same magnitude. A uniform pool maps to 1.
func normalizeRelevance(items []recommend.ScoredCandidate) []float64 {
	lo, hi := items[0].Score, items[0].Score
	for i := 1; i < len(items); i++ {
		if items[i].Score < lo {
			lo = items[i].Score
		}
		if items[i].Score > hi {
			hi = items[i].Score
		}
	}

	out := make([]float64, len(items))
	for i := range items {
		if hi <= lo {
			out[i] = 1
			continue
		}
		out[i] = (items[i].Score - lo) / (hi - lo)
	}
	return out
}

// buildSimilarityMatrix computes pairwise event similarity.
func buildSimilarityMatrix(items []recommend.ScoredCandidate) [][]float64 {
	n := len(items)
	similarities := make([][]float64, n)
	for i := range similarities {
		similarities[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := eventSimilarity(&items[i].Item, &items[j].Item)
			similarities[i][j] = sim
			similarities[j][i] = sim
		}
	}

	return similarities
}

// eventSimilarity is the weighted attribute overlap between two events.
func eventSimilarity(a, b *recommend.CandidateItem) float64 {
	sim := 0.0
	if a.Category == b.Category {
		sim += 0.4
	}
	if a.Venue != "" && a.Venue == b.Venue {
		sim += 0.3
	}
	if sameCalendarDay(a, b) {
		sim += 0.2
	}
	if a.PriceBand == b.PriceBand {
		sim += 0.1
	}
	return sim
}

func sameCalendarDay(a, b *recommend.CandidateItem) bool {
	ay, am, ad := a.StartsAt.Date()
	by, bm, bd := b.StartsAt.Date()
	return ay == by && am == bm && ad == bd
}

// Ensure MMR implements the interface.
var _ recommend.Diversifier = (*MMR)(nil)
