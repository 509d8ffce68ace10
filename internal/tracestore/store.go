// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

// Package tracestore persists ranking traces to DuckDB. It implements the
// engine's trace sink contract, so wiring it in makes every ranking decision
// queryable after the fact: which policy served the request, whether
// cold-start fired, how much of the pool was scored and which degradations
// were logged.
package tracestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver
	"github.com/goccy/go-json"

	"github.com/sortie-app/sortie/internal/logging"
	"github.com/sortie-app/sortie/internal/recommend"
)

// Store is a DuckDB-backed trace sink. The zero value is not usable; create
// one with Open.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the trace database at path and ensures the schema
// exists. An empty path opens an in-memory database, useful for tests and
// ephemeral deployments.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open trace database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping trace database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logging.Info().Str("path", path).Msg("Trace store opened")
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS ranking_traces (
			trace_id TEXT PRIMARY KEY,
			recorded_at TIMESTAMPTZ NOT NULL,
			policy_name TEXT NOT NULL,
			novelty_target DOUBLE NOT NULL,
			allow_wildcard BOOLEAN NOT NULL,
			policy_fallback BOOLEAN NOT NULL,
			profile_used BOOLEAN NOT NULL,
			cold_start BOOLEAN NOT NULL,
			scored INTEGER NOT NULL,
			warnings JSON
		);

		CREATE INDEX IF NOT EXISTS idx_traces_recorded_at ON ranking_traces(recorded_at DESC);
		CREATE INDEX IF NOT EXISTS idx_traces_policy_name ON ranking_traces(policy_name);
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create trace schema: %w", err)
		}
	}
	return nil
}

// Record inserts one trace. Duplicate trace IDs are rejected by the primary
// key; the engine generates them per request, so a conflict indicates a
// caller replaying its own ID.
func (s *Store) Record(ctx context.Context, trace recommend.Trace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trace.TraceID == "" {
		return errors.New("trace id cannot be empty")
	}

	query := `
		INSERT INTO ranking_traces (
			trace_id, recorded_at, policy_name, novelty_target, allow_wildcard,
			policy_fallback, profile_used, cold_start, scored, warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		trace.TraceID,
		time.Now().UTC(),
		trace.Policy.Name,
		trace.Policy.NoveltyTarget,
		trace.Policy.AllowWildcard,
		trace.PolicyFallback,
		trace.ProfileUsed,
		trace.ColdStart,
		trace.Scored,
		marshalWarnings(trace.Warnings),
	)
	if err != nil {
		return fmt.Errorf("insert trace: %w", err)
	}
	return nil
}

// Recent returns up to limit traces, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]recommend.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT
			trace_id, policy_name, novelty_target, allow_wildcard,
			policy_fallback, profile_used, cold_start, scored,
			CAST(warnings AS VARCHAR) AS warnings
		FROM ranking_traces
		ORDER BY recorded_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	var traces []recommend.Trace
	for rows.Next() {
		trace, err := scanTrace(rows)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to scan trace row")
			continue
		}
		traces = append(traces, trace)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate traces: %w", err)
	}
	return traces, nil
}

// Count returns the stored trace count.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ranking_traces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count traces: %w", err)
	}
	return count, nil
}

// Purge deletes traces recorded before olderThan and returns the number
// removed. Deployments run this on a retention schedule.
func (s *Store) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM ranking_traces WHERE recorded_at < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge traces: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purged row count: %w", err)
	}

	if count > 0 {
		logging.Info().Int64("deleted", count).Time("older_than", olderThan).
			Msg("Purged old ranking traces")
	}
	return count, nil
}

func marshalWarnings(warnings []string) string {
	if len(warnings) == 0 {
		return "[]"
	}
	if data, err := json.Marshal(warnings); err == nil {
		return string(data)
	}
	return "[]"
}

func scanTrace(rows *sql.Rows) (recommend.Trace, error) {
	var (
		trace    recommend.Trace
		warnings sql.NullString
	)
	err := rows.Scan(
		&trace.TraceID,
		&trace.Policy.Name,
		&trace.Policy.NoveltyTarget,
		&trace.Policy.AllowWildcard,
		&trace.PolicyFallback,
		&trace.ProfileUsed,
		&trace.ColdStart,
		&trace.Scored,
		&warnings,
	)
	if err != nil {
		return recommend.Trace{}, err
	}

	if warnings.Valid && warnings.String != "" && warnings.String != "[]" {
		if err := json.Unmarshal([]byte(warnings.String), &trace.Warnings); err != nil {
			logging.Debug().Err(err).Str("warnings", warnings.String).
				Msg("Failed to parse trace warnings JSON")
		}
	}
	return trace, nil
}

var _ recommend.TraceSink = (*Store)(nil)
