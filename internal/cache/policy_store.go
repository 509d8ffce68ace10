// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package cache

import (
	"context"
	"time"

	"github.com/sortie-app/sortie/internal/recommend"
)

// PolicyStoreConfig sizes the policy cache.
type PolicyStoreConfig struct {
	Capacity int
	TTL      time.Duration
}

// DefaultPolicyStoreConfig returns the default cache sizing.
func DefaultPolicyStoreConfig() PolicyStoreConfig {
	return PolicyStoreConfig{
		Capacity: 10000,
		TTL:      5 * time.Minute,
	}
}

// PolicyStore caches successful per-user policy lookups in front of a slower
// backing store. Lookup errors and missing policies are not cached, so the
// engine's preset fallback keeps probing the backing store on later requests.
type PolicyStore struct {
	inner recommend.PolicyStore
	lru   *LRU[recommend.ExplorationPolicy]
}

// NewPolicyStore wraps inner with an LRU keyed by user ID.
func NewPolicyStore(inner recommend.PolicyStore, cfg PolicyStoreConfig) *PolicyStore {
	return &PolicyStore{
		inner: inner,
		lru:   NewLRU[recommend.ExplorationPolicy](cfg.Capacity, cfg.TTL),
	}
}

// PolicyFor serves from the cache when possible and otherwise consults the
// backing store, caching only a found policy.
func (s *PolicyStore) PolicyFor(ctx context.Context, userID string) (*recommend.ExplorationPolicy, error) {
	if cached, ok := s.lru.Get(userID); ok {
		return &cached, nil
	}

	policy, err := s.inner.PolicyFor(ctx, userID)
	if err != nil || policy == nil {
		return policy, err
	}

	s.lru.Add(userID, *policy)
	return policy, nil
}

// Invalidate drops one user's cached policy, for callers that update
// policies out of band.
func (s *PolicyStore) Invalidate(userID string) {
	s.lru.Remove(userID)
}

// Stats exposes the underlying cache counters.
func (s *PolicyStore) Stats() (hits, misses int64, size int) {
	return s.lru.Stats()
}

var _ recommend.PolicyStore = (*PolicyStore)(nil)
