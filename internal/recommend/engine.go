// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package recommend

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidWindow reports a caller contract violation: an intention window
// with From after To. The engine fails fast rather than silently swapping
// the bounds.
var ErrInvalidWindow = errors.New("intention window: from is after to")

// ErrInvalidWeights reports a request-supplied weight set that fails the
// configured mode's invariants. Callers match it with errors.Is.
var ErrInvalidWeights = errors.New("request weights invalid")

// traceTimeout bounds the asynchronous trace write.
const traceTimeout = 2 * time.Second

// Engine turns a candidate pool plus a structured intention into three
// explained slates. It holds no cross-request mutable state and is safe for
// concurrent use; every collaborator is an explicitly injected handle.
type Engine struct {
	cfg    *Config
	logger zerolog.Logger

	diversifier Diversifier
	policies    PolicyStore
	similarity  SimilarityProvider
	augment     AugmentSource
	traces      TraceSink

	extract *extractor
}

// Dependencies bundles the engine's collaborator handles. Diversifier is
// required; the rest are optional and degrade to documented fallbacks:
// static policy presets, zero similarity, no augmentation, discarded traces.
type Dependencies struct {
	Diversifier Diversifier
	Policies    PolicyStore
	Similarity  SimilarityProvider
	Augment     AugmentSource
	Traces      TraceSink
}

// NewEngine creates a slate engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, deps Dependencies, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Diversifier == nil {
		return nil, errors.New("diversifier is required")
	}

	traces := deps.Traces
	if traces == nil {
		traces = NopTraceSink{}
	}

	return &Engine{
		cfg:         cfg.Clone(),
		logger:      logger.With().Str("component", "recommend").Logger(),
		diversifier: deps.Diversifier,
		policies:    deps.Policies,
		similarity:  deps.Similarity,
		augment:     deps.Augment,
		traces:      traces,
		extract: &extractor{
			mode:       cfg.Mode,
			similarity: deps.Similarity,
		},
	}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg.Clone()
}

// Rank produces the three slates for one request. An empty candidate pool is
// valid and yields empty slates. On cancellation mid-scoring it composes the
// best slates computable from whatever subset has been scored; only a
// malformed window or an invalid per-request weight override is an error.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Rank(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if req.Intention.From.After(req.Intention.To) {
		return nil, fmt.Errorf("%w: from=%s to=%s", ErrInvalidWindow,
			req.Intention.From.Format(time.RFC3339), req.Intention.To.Format(time.RFC3339))
	}

	weights := e.cfg.Weights
	if req.Weights != nil {
		if err := req.Weights.Validate(e.cfg.Mode); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
		weights = req.Weights
	}

	if req.TraceID == "" {
		req.TraceID = uuid.NewString()
	}
	logger := e.logger.With().Str("trace_id", req.TraceID).Logger()
	trace := Trace{
		TraceID:     req.TraceID,
		ProfileUsed: req.Profile.HasSignal(),
	}

	policy, fallback := e.resolvePolicy(ctx, req.UserID, req.ExplorationLevel)
	trace.Policy = policy
	trace.PolicyFallback = fallback

	pool := e.buildPool(ctx, &req, &trace, logger)
	scored := e.scorePool(ctx, pool, &req.Intention, req.Profile, newScorer(e.cfg.Mode, weights))
	trace.Scored = len(scored)
	if ctx.Err() != nil && len(scored) < len(pool) {
		trace.Warnings = append(trace.Warnings, "cancelled_mid_scoring")
		logger.Warn().Int("scored", len(scored)).Int("pool", len(pool)).
			Msg("Cancelled mid-scoring, composing from partial results")
	}

	scored = debias(scored, e.cfg.Debias.Alpha)

	cmp := &composer{
		cfg:         e.cfg,
		diversifier: e.diversifier,
		reasons:     reasonCompiler{mode: e.cfg.Mode},
	}
	resp := &Response{
		Slates:     cmp.Compose(ctx, scored, policy),
		PolicyUsed: policy,
	}

	e.recordTrace(trace)

	logger.Debug().
		Int("candidates", len(req.Candidates)).
		Int("scored", len(scored)).
		Bool("cold_start", trace.ColdStart).
		Str("policy", policy.Name).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("Ranking complete")

	return resp, nil
}

// poolEntry is one candidate awaiting scoring.
type poolEntry struct {
	item      CandidateItem
	augmented bool
}

// buildPool assembles the scoring pool: the caller's candidates capped at
// the configured limit, then cold-start augmentation appended after every
// matched item when the trigger fires.
func (e *Engine) buildPool(ctx context.Context, req *Request, trace *Trace, logger zerolog.Logger) []poolEntry {
	limit := e.cfg.Limits.MaxCandidates
	matched := req.Candidates
	if len(matched) > limit {
		logger.Warn().Int("candidates", len(matched)).Int("limit", limit).
			Msg("Candidate pool over limit, truncating")
		trace.Warnings = append(trace.Warnings, "pool_truncated")
		matched = matched[:limit]
	}

	pool := make([]poolEntry, 0, len(matched))
	seen := make(map[string]struct{}, len(matched))
	for i := range matched {
		if _, dup := seen[matched[i].ID]; dup {
			continue
		}
		seen[matched[i].ID] = struct{}{}
		pool = append(pool, poolEntry{item: matched[i]})
	}

	if e.shouldAugment(len(pool), req.Profile) {
		trace.ColdStart = true
		for _, item := range e.augmentPool(ctx, &req.Intention, seen, trace) {
			if len(pool) >= limit {
				break
			}
			pool = append(pool, poolEntry{item: item, augmented: true})
		}
	}

	return pool
}

// scorePool extracts features and scores every pool entry in parallel,
// bounded by the configured worker count. On cancellation the remaining
// entries are skipped and whatever has been scored is returned in pool
// order, matched items before augmented ones.
func (e *Engine) scorePool(ctx context.Context, pool []poolEntry, intent *Intention, profile *Profile, sc *scorer) []ScoredCandidate {
	if len(pool) == 0 {
		return []ScoredCandidate{}
	}

	workers := e.cfg.Limits.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pool) {
		workers = len(pool)
	}

	results := make([]ScoredCandidate, len(pool))
	done := make([]bool, len(pool))
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-jobs:
					if !ok {
						return
					}
					factors := e.extract.Extract(ctx, &pool[i].item, intent, profile)
					results[i] = ScoredCandidate{
						Item:      pool[i].item,
						Score:     sc.Score(factors),
						Factors:   factors,
						Augmented: pool[i].augmented,
					}
					done[i] = true
				}
			}
		}()
	}

feed:
	for i := range pool {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	scored := make([]ScoredCandidate, 0, len(pool))
	for i := range results {
		if done[i] {
			scored = append(scored, results[i])
		}
	}
	return scored
}

// recordTrace hands the trace to the sink asynchronously. Sink failures are
// logged and dropped; they never affect the returned slates.
func (e *Engine) recordTrace(trace Trace) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), traceTimeout)
		defer cancel()
		if err := e.traces.Record(ctx, trace); err != nil {
			e.logger.Warn().Err(err).Str("trace_id", trace.TraceID).
				Msg("Trace sink write failed")
		}
	}()
}
