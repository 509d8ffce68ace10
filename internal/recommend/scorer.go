// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

// scorer collapses a factor map into one scalar under an externally supplied
// weight set. It is deterministic and carries no state beyond its
// configuration; the factor map is returned untouched alongside the scalar.
type scorer struct {
	mode    ScoringMode
	weights FeatureWeights
	maxima  map[string]float64
}

func newScorer(mode ScoringMode, weights FeatureWeights) *scorer {
	return &scorer{
		mode:    mode,
		weights: weights,
		maxima:  factorMaxima(mode),
	}
}

// Score computes the weighted combination of factors. In point mode each
// factor is divided by its budget first, so the probability-like weights mean
// the same thing in both conventions. Missing factors contribute zero; a
// negative weight acts as a penalty on top of the normalized positive sum.
func (s *scorer) Score(factors FactorScores) float64 {
	total := 0.0
	for name, weight := range s.weights {
		value, ok := factors[name]
		if !ok {
			continue
		}
		if max := s.maxima[name]; max > 1 {
			value /= max
		}
		total += weight * value
	}
	if total < 0 {
		return 0
	}
	return total
}
