// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sortie-app/sortie/internal/config"
	"github.com/sortie-app/sortie/internal/recommend"
	"github.com/sortie-app/sortie/internal/recommend/rerank"
)

var testBase = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	engine, err := recommend.NewEngine(nil, recommend.Dependencies{
		Diversifier: rerank.NewMMR(0.7),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() = %v", err)
	}

	handler := NewHandler(engine, 4<<20)
	router := NewRouter(handler, &config.APIConfig{
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
		MaxBodyBytes:    4 << 20,
	})
	return router.Setup()
}

func slatesBody(t *testing.T, req *SlatesRequest) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewReader(data)
}

func validSlatesRequest() *SlatesRequest {
	return &SlatesRequest{
		Candidates: []recommend.CandidateItem{
			{
				ID:        "e1",
				Title:     "Late Night Jazz Jam",
				Category:  recommend.CategoryMusic,
				StartsAt:  testBase.Add(time.Hour),
				City:      "Lisbon",
				PriceBand: recommend.PriceFree,
			},
			{
				ID:        "e2",
				Title:     "Pop-up Food Market",
				Category:  recommend.CategoryFood,
				StartsAt:  testBase.Add(2 * time.Hour),
				City:      "Lisbon",
				PriceBand: recommend.PriceLow,
			},
		},
		Intention: recommend.Intention{
			Goal: "live music tonight",
			From: testBase,
			To:   testBase.Add(8 * time.Hour),
			City: "Lisbon",
		},
	}
}

func postSlates(t *testing.T, srv http.Handler, body *bytes.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/slates", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestSlates_OK(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := postSlates(t, srv, slatesBody(t, validSlatesRequest()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Status string             `json:"status"`
		Data   recommend.Response `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Status != "ok" {
		t.Errorf("status = %q, want ok", envelope.Status)
	}
	if len(envelope.Data.Slates) != 3 {
		t.Fatalf("slates = %d, want 3", len(envelope.Data.Slates))
	}

	best := envelope.Data.Slate(recommend.SlateBest)
	if best == nil || len(best.Items) != 2 {
		t.Fatalf("best slate = %+v, want both candidates ranked", best)
	}
	for _, item := range best.Items {
		if len(item.Reasons) < 1 || len(item.Reasons) > 3 {
			t.Errorf("item %q reasons = %v, want 1-3", item.ID, item.Reasons)
		}
	}

	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("missing X-Trace-ID response header")
	}
}

func TestSlates_MalformedJSON(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := postSlates(t, srv, bytes.NewReader([]byte("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertErrorCode(t, rec, "INVALID_BODY")
}

func TestSlates_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := postSlates(t, srv, bytes.NewReader([]byte(`{"surprise": true}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertErrorCode(t, rec, "INVALID_BODY")
}

func TestSlates_ValidationErrors(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(*SlatesRequest)
	}{
		{"missing window", func(r *SlatesRequest) { r.Intention.From = time.Time{} }},
		{"candidate without id", func(r *SlatesRequest) { r.Candidates[0].ID = "" }},
		{"unknown category", func(r *SlatesRequest) { r.Candidates[0].Category = "rodeo" }},
		{"bad exploration level", func(r *SlatesRequest) { r.ExplorationLevel = "extreme" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := validSlatesRequest()
			tt.mutate(req)

			rec := postSlates(t, srv, slatesBody(t, req))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, rec, "VALIDATION_ERROR")
		})
	}
}

func TestSlates_UnknownPriceBandRejectedAtDecode(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	body := []byte(`{"candidates": [], "intention": {"budget": "sky-high"}}`)
	rec := postSlates(t, srv, bytes.NewReader(body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertErrorCode(t, rec, "INVALID_BODY")
}

func TestSlates_InvalidWindow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	req := validSlatesRequest()
	req.Intention.From, req.Intention.To = req.Intention.To, req.Intention.From

	rec := postSlates(t, srv, slatesBody(t, req))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertErrorCode(t, rec, "INVALID_WINDOW")
}

func TestSlates_InvalidWeights(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	req := validSlatesRequest()
	req.Weights = recommend.FeatureWeights{"mystery_factor": 1.0}

	rec := postSlates(t, srv, slatesBody(t, req))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertErrorCode(t, rec, "INVALID_WEIGHTS")
}

func TestSlates_EchoesCallerTraceID(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slates", slatesBody(t, validSlatesRequest()))
	req.Header.Set("X-Trace-ID", "caller-trace-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Trace-ID"); got != "caller-trace-1" {
		t.Errorf("X-Trace-ID = %q, want caller's ID echoed", got)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var envelope struct {
		Status string            `json:"status"`
		Data   map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["state"] != "healthy" {
		t.Errorf("state = %q, want healthy", envelope.Data["state"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var envelope struct {
		Status string   `json:"status"`
		Error  APIError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	if envelope.Error.Code != want {
		t.Errorf("error code = %q, want %q; body: %s", envelope.Error.Code, want, rec.Body.String())
	}
}
