// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Static presets for the three canonical exploration stances. A persisted
// per-user policy, when available, always wins over these.
var policyPresets = map[ExplorationLevel]ExplorationPolicy{
	ExplorationLow:    {Name: "conservative", NoveltyTarget: 0.2, AllowWildcard: false},
	ExplorationMedium: {Name: "balanced", NoveltyTarget: 0.5, AllowWildcard: true},
	ExplorationHigh:   {Name: "adventurous", NoveltyTarget: 0.8, AllowWildcard: true},
}

// PresetPolicy returns the static preset for the given level. Unknown levels
// resolve to the balanced preset.
func PresetPolicy(level ExplorationLevel) ExplorationPolicy {
	if p, ok := policyPresets[level]; ok {
		return p
	}
	return policyPresets[ExplorationMedium]
}

// resolvePolicy looks up a persisted per-user policy under a bounded timeout
// and falls back to the static preset on any failure: nil store, empty user,
// timeout, lookup error, or no stored policy. The second return reports
// whether the preset fallback was used; lookup errors never propagate.
func (e *Engine) resolvePolicy(ctx context.Context, userID string, level ExplorationLevel) (ExplorationPolicy, bool) {
	preset := PresetPolicy(level)
	if e.policies == nil || userID == "" {
		return preset, true
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.cfg.Policy.LookupTimeout)
	defer cancel()

	stored, err := e.policies.PolicyFor(lookupCtx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).
			Msg("Policy lookup failed, using static preset")
		return preset, true
	}
	if stored == nil || stored.NoveltyTarget < 0 || stored.NoveltyTarget > 1 {
		return preset, true
	}
	return *stored, false
}

// StaticPolicyStore is a PolicyStore backed by an in-memory map. It is the
// reference implementation used by the server wiring and tests; production
// callers substitute a persistence-backed store.
type StaticPolicyStore struct {
	policies map[string]ExplorationPolicy
}

// NewStaticPolicyStore copies the given per-user policies into a store.
func NewStaticPolicyStore(policies map[string]ExplorationPolicy) *StaticPolicyStore {
	copied := make(map[string]ExplorationPolicy, len(policies))
	for id, p := range policies {
		copied[id] = p
	}
	return &StaticPolicyStore{policies: copied}
}

// PolicyFor returns the stored policy for userID, or nil when none exists.
func (s *StaticPolicyStore) PolicyFor(_ context.Context, userID string) (*ExplorationPolicy, error) {
	if p, ok := s.policies[userID]; ok {
		out := p
		return &out, nil
	}
	return nil, nil
}

// BreakerPolicyStore wraps a PolicyStore with a circuit breaker so a
// misbehaving policy backend stops being queried instead of eating the
// lookup timeout on every request. Breaker-open surfaces as a lookup error,
// which the resolver maps to the static preset.
type BreakerPolicyStore struct {
	inner   PolicyStore
	breaker *gobreaker.CircuitBreaker[*ExplorationPolicy]
}

// BreakerPolicyStoreConfig tunes the wrapping circuit breaker.
type BreakerPolicyStoreConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerPolicyStoreConfig returns production breaker defaults.
func DefaultBreakerPolicyStoreConfig() BreakerPolicyStoreConfig {
	return BreakerPolicyStoreConfig{
		Name:             "policy-store",
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// NewBreakerPolicyStore wraps inner with circuit breaker protection.
func NewBreakerPolicyStore(inner PolicyStore, cfg BreakerPolicyStoreConfig) *BreakerPolicyStore {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return &BreakerPolicyStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[*ExplorationPolicy](settings),
	}
}

// PolicyFor delegates to the wrapped store through the breaker.
func (s *BreakerPolicyStore) PolicyFor(ctx context.Context, userID string) (*ExplorationPolicy, error) {
	return s.breaker.Execute(func() (*ExplorationPolicy, error) {
		return s.inner.PolicyFor(ctx, userID)
	})
}

// State returns the breaker state as a string for monitoring.
func (s *BreakerPolicyStore) State() string {
	return s.breaker.State().String()
}

// NopTraceSink discards traces. Used wherever no trace persistence is wired.
type NopTraceSink struct{}

// Record implements TraceSink.
func (NopTraceSink) Record(_ context.Context, _ Trace) error { return nil }
