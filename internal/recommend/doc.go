// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

// Package recommend implements the slate engine: it turns a pool of
// candidate activities plus a structured intention into three diversified,
// explained result sets.
//
// # Pipeline
//
// Candidates flow through a fixed funnel:
//
//   - Cold-Start Augmenter: merges a generic accessible pool when the
//     matched pool is thin and the user has no profile signal
//   - Feature Extractor: per-item factor map under one of two conventions
//     (raw points or normalized 0-1), selected by configuration
//   - Scorer: weighted linear combination into one scalar
//   - Popularity Debiaser: inverse-propensity reweighting against the
//     pool-mean popularity
//   - Diversity Selector: MMR over event similarity (rerank subpackage)
//   - Slate Composer: Best / Wildcard / Close & Easy, independent rules
//   - Reason Compiler: 1-3 strings from a closed vocabulary per item
//
// # Design Principles
//
//   - Deterministic: same inputs produce identical outputs, no randomness
//   - Stateless: per-request snapshots only, no cross-request mutable state
//   - Degradable: collaborator failures map to documented fallbacks and
//     trace warnings, never to an error for the slate consumer
//   - Auditable: every slate item retains its full factor breakdown
//
// # Usage
//
//	cfg := recommend.DefaultConfig()
//	engine, err := recommend.NewEngine(cfg, recommend.Dependencies{
//	    Diversifier: rerank.NewMMR(cfg.Diversity.Lambda),
//	    Policies:    policyStore,
//	}, logger)
//
//	resp, err := engine.Rank(ctx, recommend.Request{
//	    Candidates: pool,
//	    Intention:  intent,
//	})
//
// # Thread Safety
//
// The engine is safe for concurrent use. Ranking operates on per-request
// snapshots; feature extraction runs on a bounded worker pool sized to the
// configured worker count.
//
// This package has no dependencies on other internal packages so the engine
// stays embeddable; collaborators are plain interfaces injected at
// construction.
package recommend
