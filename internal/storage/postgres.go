/**
 * PostgreSQL result store
 *
 * Persists finished parse results for later inspection. Persistence is
 * best-effort: the pipeline logs and continues when a write fails.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ParseRecord is one persisted parse outcome.
type ParseRecord struct {
	RequestID        string
	Title            string
	Author           string
	Confidence       float64
	Verified         bool
	Provider         string
	ISBN13           string
	Warnings         []string
	ProcessingTimeMs int64
}

// PostgresStore handles database operations for parse results.
type PostgresStore struct {
	db *sql.DB
}

// sanitizeConfidence clamps to [0,1] and rounds to 4 decimal places so
// float artifacts like 0.9632000000000001 never reach the NUMERIC column.
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0.0 {
		return 0.0
	}
	if confidence > 1.0 {
		return 1.0
	}
	return float64(int(confidence*10000+0.5)) / 10000
}

// NewPostgresStore opens a pooled connection and verifies it with a ping.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the parse_results table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS parse_results (
			request_id         UUID PRIMARY KEY,
			title              TEXT,
			author             TEXT,
			confidence         NUMERIC(5,4),
			verified           BOOLEAN NOT NULL DEFAULT FALSE,
			provider           TEXT,
			isbn13             TEXT,
			warnings           JSONB NOT NULL DEFAULT '[]'::jsonb,
			processing_time_ms BIGINT,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure parse_results schema: %w", err)
	}
	return nil
}

// SaveResult upserts one parse result keyed by request id.
func (s *PostgresStore) SaveResult(ctx context.Context, rec *ParseRecord) error {
	if rec.RequestID == "" {
		return fmt.Errorf("request ID is required")
	}

	warningsJSON, err := json.Marshal(rec.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	if rec.Warnings == nil {
		warningsJSON = []byte("[]")
	}

	query := `
		INSERT INTO parse_results (
			request_id, title, author, confidence, verified,
			provider, isbn13, warnings, processing_time_ms,
			created_at, updated_at
		) VALUES (
			$1::uuid, NULLIF($2, ''), NULLIF($3, ''), $4::NUMERIC(5,4), $5,
			NULLIF($6, ''), NULLIF($7, ''), $8::jsonb, $9,
			NOW(), NOW()
		)
		ON CONFLICT (request_id) DO UPDATE SET
			title              = EXCLUDED.title,
			author             = EXCLUDED.author,
			confidence         = EXCLUDED.confidence,
			verified           = EXCLUDED.verified,
			provider           = EXCLUDED.provider,
			isbn13             = EXCLUDED.isbn13,
			warnings           = EXCLUDED.warnings,
			processing_time_ms = EXCLUDED.processing_time_ms,
			updated_at         = NOW()
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		rec.RequestID,
		rec.Title,
		rec.Author,
		sanitizeConfidence(rec.Confidence),
		rec.Verified,
		rec.Provider,
		rec.ISBN13,
		warningsJSON,
		rec.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save parse result (request=%s): %w", rec.RequestID, err)
	}
	return nil
}

// GetResult retrieves a persisted parse result by request id.
func (s *PostgresStore) GetResult(ctx context.Context, requestID string) (*ParseRecord, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request ID is required")
	}

	query := `
		SELECT request_id, title, author, confidence, verified,
		       provider, isbn13, warnings, processing_time_ms
		FROM parse_results
		WHERE request_id = $1::uuid
	`

	var (
		rec              ParseRecord
		title, author    sql.NullString
		confidence       sql.NullFloat64
		provider, isbn13 sql.NullString
		warningsJSON     []byte
		processingTime   sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, query, requestID).Scan(
		&rec.RequestID, &title, &author, &confidence, &rec.Verified,
		&provider, &isbn13, &warningsJSON, &processingTime,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("parse result not found: %s", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parse result: %w", err)
	}

	rec.Title = title.String
	rec.Author = author.String
	rec.Confidence = confidence.Float64
	rec.Provider = provider.String
	rec.ISBN13 = isbn13.String
	rec.ProcessingTimeMs = processingTime.Int64
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &rec.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
	}

	return &rec, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics.
func (s *PostgresStore) GetStats() sql.DBStats {
	return s.db.Stats()
}
