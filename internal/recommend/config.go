// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"fmt"
	"math"
	"time"
)

// ScoringMode selects the factor convention. It is an explicit configuration
// choice, never inferred from the shape of the scores at runtime.
type ScoringMode string

const (
	// ModePoints emits the raw-point factors (category 0-30, vibe 0-25,
	// time 0-20, price 0-15, social 0-10).
	ModePoints ScoringMode = "points"

	// ModeNormalized emits 0-1 factors including embedding similarity,
	// popularity, quality, engagement and trending.
	ModeNormalized ScoringMode = "normalized"
)

// Valid reports whether m is a known mode.
func (m ScoringMode) Valid() bool {
	return m == ModePoints || m == ModeNormalized
}

// FeatureWeights maps factor names to their weight in the combined score.
// Positive entries must sum to ~1.0; a single negative-weighted penalty
// factor is permitted and excluded from the sum invariant.
type FeatureWeights map[string]float64

// weightSumTolerance bounds how far the positive weights may drift from 1.0
// before the set is rejected at load time.
const weightSumTolerance = 0.02

// Validate checks the weight-set invariants: non-empty, at most one negative
// entry, positive entries summing to ~1.0, and factor names drawn from the
// declared mode's factor set.
func (w FeatureWeights) Validate(mode ScoringMode) error {
	if len(w) == 0 {
		return fmt.Errorf("weights: empty weight set")
	}

	known := factorMaxima(mode)
	positiveSum := 0.0
	negatives := 0

	for name, weight := range w {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("weights: unknown factor %q for mode %q", name, mode)
		}
		if weight < 0 {
			negatives++
			if negatives > 1 {
				return fmt.Errorf("weights: at most one negative penalty factor is allowed")
			}
			continue
		}
		positiveSum += weight
	}

	if math.Abs(positiveSum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights: positive entries must sum to ~1.0, got %.4f", positiveSum)
	}

	return nil
}

// Clone returns an independent copy of the weight set.
func (w FeatureWeights) Clone() FeatureWeights {
	if w == nil {
		return nil
	}
	out := make(FeatureWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Config contains all configuration for the slate engine.
type Config struct {
	// Mode selects the factor convention for extraction and scoring.
	Mode ScoringMode `koanf:"mode" json:"mode"`

	// Weights is the externally supplied weight set for the selected mode.
	Weights FeatureWeights `koanf:"weights" json:"weights"`

	// Debias contains inverse-propensity debiasing parameters.
	Debias DebiasConfig `koanf:"debias" json:"debias"`

	// Diversity contains MMR parameters for the Best slate.
	Diversity DiversityConfig `koanf:"diversity" json:"diversity"`

	// Wildcard contains the Wildcard slate gate parameters. The thresholds
	// are configuration, not constants.
	Wildcard WildcardConfig `koanf:"wildcard" json:"wildcard"`

	// CloseEasy contains the Close & Easy slate parameters.
	CloseEasy CloseEasyConfig `koanf:"close_easy" json:"close_easy"`

	// ColdStart contains cold-start augmentation parameters.
	ColdStart ColdStartConfig `koanf:"cold_start" json:"cold_start"`

	// Policy contains exploration-policy lookup parameters.
	Policy PolicyConfig `koanf:"policy" json:"policy"`

	// Limits contains operational limits.
	Limits LimitsConfig `koanf:"limits" json:"limits"`
}

// DebiasConfig contains inverse-propensity debiasing parameters.
type DebiasConfig struct {
	// Alpha is the propensity exponent. 0 disables debiasing.
	// Default: 0.3.
	Alpha float64 `koanf:"alpha" json:"alpha"`
}

// DiversityConfig contains MMR parameters.
type DiversityConfig struct {
	// Lambda balances relevance vs. diversity. 1.0 = plain top-k,
	// 0.0 = maximum dispersion. Default: 0.7.
	Lambda float64 `koanf:"lambda" json:"lambda"`

	// PoolSize is the diversified pool size the Best slate is cut from.
	// Default: 10.
	PoolSize int `koanf:"pool_size" json:"pool_size"`

	// SlateSize is the number of items returned per slate. Default: 5.
	SlateSize int `koanf:"slate_size" json:"slate_size"`
}

// WildcardConfig contains the Wildcard slate gate parameters.
type WildcardConfig struct {
	// NoveltyThreshold is the minimum novelty factor for Wildcard
	// eligibility. Default: 0.4.
	NoveltyThreshold float64 `koanf:"novelty_threshold" json:"novelty_threshold"`

	// ScoreFloor is the minimum pool-normalized relevance for Wildcard
	// eligibility. Default: 0.35.
	ScoreFloor float64 `koanf:"score_floor" json:"score_floor"`
}

// CloseEasyConfig contains the Close & Easy slate parameters.
type CloseEasyConfig struct {
	// Enabled toggles the slate; it is always emitted when enabled.
	// Default: true.
	Enabled bool `koanf:"enabled" json:"enabled"`
}

// ColdStartConfig contains cold-start augmentation parameters.
type ColdStartConfig struct {
	// MinPool is the pool size below which augmentation may trigger.
	// Default: 20.
	MinPool int `koanf:"min_pool" json:"min_pool"`

	// PerCategoryCap limits augmented items per category. Default: 5.
	PerCategoryCap int `koanf:"per_category_cap" json:"per_category_cap"`

	// TotalCap limits the total number of augmented items. Default: 30.
	TotalCap int `koanf:"total_cap" json:"total_cap"`

	// QueryTimeout bounds the secondary-pool query. Default: 150ms.
	QueryTimeout time.Duration `koanf:"query_timeout" json:"query_timeout"`
}

// PolicyConfig contains exploration-policy lookup parameters.
type PolicyConfig struct {
	// LookupTimeout bounds the persisted-policy lookup. Default: 100ms.
	LookupTimeout time.Duration `koanf:"lookup_timeout" json:"lookup_timeout"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// MaxCandidates caps the scored pool, augmented items included.
	// Default: 200.
	MaxCandidates int `koanf:"max_candidates" json:"max_candidates"`

	// Workers bounds the feature-extraction worker pool.
	// Default: 0 (use runtime.NumCPU()).
	Workers int `koanf:"workers" json:"workers"`
}

// DefaultConfig returns a Config with production defaults for the
// point-based convention.
func DefaultConfig() *Config {
	return &Config{
		Mode: ModePoints,
		Weights: FeatureWeights{
			FactorCategoryMatch:  0.30,
			FactorVibeAlignment:  0.25,
			FactorTimeFit:        0.20,
			FactorPriceComfort:   0.15,
			FactorSocialFit:      0.10,
			FactorDislikePenalty: -0.25,
		},
		Debias: DebiasConfig{
			Alpha: 0.3,
		},
		Diversity: DiversityConfig{
			Lambda:    0.7,
			PoolSize:  10,
			SlateSize: 5,
		},
		Wildcard: WildcardConfig{
			NoveltyThreshold: 0.4,
			ScoreFloor:       0.35,
		},
		CloseEasy: CloseEasyConfig{
			Enabled: true,
		},
		ColdStart: ColdStartConfig{
			MinPool:        20,
			PerCategoryCap: 5,
			TotalCap:       30,
			QueryTimeout:   150 * time.Millisecond,
		},
		Policy: PolicyConfig{
			LookupTimeout: 100 * time.Millisecond,
		},
		Limits: LimitsConfig{
			MaxCandidates: 200,
			Workers:       0,
		},
	}
}

// DefaultNormalizedWeights returns the default weight set for the
// normalized convention.
func DefaultNormalizedWeights() FeatureWeights {
	return FeatureWeights{
		FactorCategoryMatch:      0.25,
		FactorSemanticSimilarity: 0.20,
		FactorUserSemanticMatch:  0.10,
		FactorPopularity:         0.15,
		FactorTimeFit:            0.15,
		FactorQuality:            0.05,
		FactorEngagement:         0.05,
		FactorTrending:           0.05,
		FactorDislikePenalty:     -0.20,
	}
}

// Validate checks the configuration for errors. A bad weight file or an
// out-of-range parameter fails here, at load time, so it cannot silently
// degrade every request.
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("mode must be %q or %q, got %q", ModePoints, ModeNormalized, c.Mode)
	}
	if err := c.Weights.Validate(c.Mode); err != nil {
		return err
	}

	if c.Debias.Alpha < 0 || c.Debias.Alpha > 1 {
		return fmt.Errorf("debias.alpha must be in [0, 1], got %f", c.Debias.Alpha)
	}
	if c.Diversity.Lambda < 0 || c.Diversity.Lambda > 1 {
		return fmt.Errorf("diversity.lambda must be in [0, 1], got %f", c.Diversity.Lambda)
	}
	if c.Diversity.PoolSize < 1 {
		return fmt.Errorf("diversity.pool_size must be positive, got %d", c.Diversity.PoolSize)
	}
	if c.Diversity.SlateSize < 1 {
		return fmt.Errorf("diversity.slate_size must be positive, got %d", c.Diversity.SlateSize)
	}
	if c.Diversity.SlateSize > c.Diversity.PoolSize {
		return fmt.Errorf("diversity.slate_size must be <= diversity.pool_size, got %d > %d",
			c.Diversity.SlateSize, c.Diversity.PoolSize)
	}

	if c.Wildcard.NoveltyThreshold < 0 || c.Wildcard.NoveltyThreshold > 1 {
		return fmt.Errorf("wildcard.novelty_threshold must be in [0, 1], got %f", c.Wildcard.NoveltyThreshold)
	}
	if c.Wildcard.ScoreFloor < 0 || c.Wildcard.ScoreFloor > 1 {
		return fmt.Errorf("wildcard.score_floor must be in [0, 1], got %f", c.Wildcard.ScoreFloor)
	}

	if c.ColdStart.MinPool < 0 {
		return fmt.Errorf("cold_start.min_pool must be non-negative, got %d", c.ColdStart.MinPool)
	}
	if c.ColdStart.PerCategoryCap < 1 {
		return fmt.Errorf("cold_start.per_category_cap must be positive, got %d", c.ColdStart.PerCategoryCap)
	}
	if c.ColdStart.TotalCap < 1 {
		return fmt.Errorf("cold_start.total_cap must be positive, got %d", c.ColdStart.TotalCap)
	}
	if c.ColdStart.QueryTimeout <= 0 {
		return fmt.Errorf("cold_start.query_timeout must be positive, got %v", c.ColdStart.QueryTimeout)
	}
	if c.Policy.LookupTimeout <= 0 {
		return fmt.Errorf("policy.lookup_timeout must be positive, got %v", c.Policy.LookupTimeout)
	}

	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("limits.max_candidates must be positive, got %d", c.Limits.MaxCandidates)
	}
	if c.Limits.Workers < 0 {
		return fmt.Errorf("limits.workers must be non-negative, got %d", c.Limits.Workers)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Weights = c.Weights.Clone()
	return &out
}
