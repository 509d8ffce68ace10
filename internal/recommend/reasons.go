// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

// Closed reason vocabulary. These strings are the full set of justifications
// the engine ever emits; the UI layer localizes them, nothing composes new
// ones at runtime.
const (
	ReasonStrongMatch      = "Right up your alley"
	ReasonVibeMatch        = "Matches the vibe you asked for"
	ReasonStartingSoon     = "Starting soon"
	ReasonFreeEntry        = "Free to attend"
	ReasonBudgetFit        = "Fits your budget"
	ReasonNearby           = "Close to you"
	ReasonSocialFit        = "Suits your plans"
	ReasonFreshPick        = "Something different to try"
	ReasonCloseToRequest   = "Closely matches your request"
	ReasonPopularNow       = "Popular right now"
	ReasonDefault          = "Worth a look"

	maxReasons = 3
)

// reasonRule maps one factor threshold to one vocabulary entry. Thresholds
// are per-convention; a zero threshold marks the rule as unused in that
// convention.
type reasonRule struct {
	factor     string
	points     float64
	normalized float64
	message    string
}

// Rule order is emission order: the strongest, most user-meaningful
// justifications first.
var reasonRules = []reasonRule{
	{factor: FactorCategoryMatch, points: 25, normalized: 0.8, message: ReasonStrongMatch},
	{factor: FactorSemanticSimilarity, normalized: 0.75, message: ReasonCloseToRequest},
	{factor: FactorVibeAlignment, points: 15, message: ReasonVibeMatch},
	{factor: FactorTimeFit, points: 20, normalized: 0.95, message: ReasonStartingSoon},
	{factor: FactorPriceComfort, points: 15, message: ReasonBudgetFit},
	{factor: FactorDistanceComfort, points: 10, normalized: 0.99, message: ReasonNearby},
	{factor: FactorSocialFit, points: 10, message: ReasonSocialFit},
	{factor: FactorPopularity, normalized: 0.7, message: ReasonPopularNow},
	{factor: FactorNovelty, points: 0.8, normalized: 0.8, message: ReasonFreshPick},
}

// reasonCompiler turns a factor snapshot into 1-3 ordered vocabulary
// strings. The convention is fixed at construction from the configured mode,
// never sniffed from the score values.
type reasonCompiler struct {
	mode ScoringMode
}

// Compile returns between one and three reasons. Free entry takes the budget
// slot when the item costs nothing; when no rule fires the single default
// filler is emitted so no ranked item ever ships unexplained.
func (r reasonCompiler) Compile(item *CandidateItem, factors FactorScores) []string {
	reasons := make([]string, 0, maxReasons)

	for _, rule := range reasonRules {
		threshold := rule.points
		if r.mode == ModeNormalized {
			threshold = rule.normalized
		}
		if threshold == 0 {
			continue
		}
		value, ok := factors[rule.factor]
		if !ok || value < threshold {
			continue
		}

		message := rule.message
		if message == ReasonBudgetFit && item.PriceBand == PriceFree {
			message = ReasonFreeEntry
		}
		reasons = append(reasons, message)
		if len(reasons) == maxReasons {
			break
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonDefault)
	}
	return reasons
}
