// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/sortie-app/sortie/internal/logging"
	"github.com/sortie-app/sortie/internal/metrics"
	"github.com/sortie-app/sortie/internal/recommend"
)

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	engine   *recommend.Engine
	validate *validator.Validate
	maxBody  int64
}

// NewHandler creates the handler set around a ranking engine.
func NewHandler(engine *recommend.Engine, maxBody int64) *Handler {
	return &Handler{
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		maxBody:  maxBody,
	}
}

// SlatesRequest is the ranking request body.
type SlatesRequest struct {
	Candidates       []recommend.CandidateItem `json:"candidates" validate:"max=500"`
	Intention        recommend.Intention       `json:"intention"`
	Profile          *recommend.Profile        `json:"profile,omitempty"`
	UserID           string                    `json:"user_id,omitempty" validate:"omitempty,max=128"`
	ExplorationLevel string                    `json:"exploration_level,omitempty" validate:"omitempty,oneof=low medium high"`
	Weights          recommend.FeatureWeights  `json:"weights,omitempty"`
	TraceID          string                    `json:"trace_id,omitempty" validate:"omitempty,max=128"`
}

// Slates handles POST /api/v1/slates: it decodes and validates the request,
// runs the ranking pipeline, and returns the three slates.
func (h *Handler) Slates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := logging.Ctx(r.Context())

	var req SlatesRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON: "+err.Error())
		return
	}

	if err := h.validateSlatesRequest(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	level, _ := recommend.ParseExplorationLevel(req.ExplorationLevel)
	traceID := req.TraceID
	if traceID == "" {
		traceID = logging.TraceIDFromContext(r.Context())
	}

	resp, err := h.engine.Rank(r.Context(), recommend.Request{
		Candidates:       req.Candidates,
		Intention:        req.Intention,
		Profile:          req.Profile,
		UserID:           req.UserID,
		ExplorationLevel: level,
		Weights:          req.Weights,
		TraceID:          traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrInvalidWindow):
			metrics.RecordRankingError("invalid_window")
			respondError(w, r, http.StatusBadRequest, "INVALID_WINDOW", err.Error())
		case errors.Is(err, recommend.ErrInvalidWeights):
			metrics.RecordRankingError("invalid_weights")
			respondError(w, r, http.StatusBadRequest, "INVALID_WEIGHTS", err.Error())
		default:
			metrics.RecordRankingError("internal")
			logger.Error().Err(err).Msg("Ranking failed")
			respondError(w, r, http.StatusInternalServerError, "INTERNAL", "ranking failed")
		}
		return
	}

	metrics.RecordRanking(len(req.Candidates), time.Since(start))
	for _, slate := range resp.Slates {
		metrics.RecordSlate(string(slate.Label), len(slate.Items))
	}

	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "ok",
		Data:   resp,
		Metadata: Metadata{
			Timestamp: time.Now(),
			TraceID:   traceID,
		},
	})
}

// validateSlatesRequest applies struct-tag validation plus the checks the
// tags cannot express.
func (h *Handler) validateSlatesRequest(req *SlatesRequest) error {
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	if req.Intention.From.IsZero() || req.Intention.To.IsZero() {
		return errors.New("intention.from and intention.to are required")
	}

	for i := range req.Candidates {
		c := &req.Candidates[i]
		if c.ID == "" {
			return errors.New("every candidate needs an id")
		}
		if _, ok := recommend.ParseCategory(string(c.Category)); !ok {
			return errors.New("candidate " + c.ID + ": unknown category " + string(c.Category))
		}
		if !c.PriceBand.Valid() {
			return errors.New("candidate " + c.ID + ": price band out of range")
		}
	}

	if req.Intention.Budget != nil && !req.Intention.Budget.Valid() {
		return errors.New("intention.budget out of range")
	}

	return nil
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "ok",
		Data: map[string]string{
			"service": "sortie",
			"state":   "healthy",
		},
		Metadata: Metadata{Timestamp: time.Now()},
	})
}
