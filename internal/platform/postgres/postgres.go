// Package postgres owns the database handle and schema migrations. The
// relational store is the sole arbiter of atomicity; uniqueness of case
// numbers and per-case evidence numbers is enforced here, not in memory.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// Stores translate it to sentinel.ErrConflict so services can retry
// generated identifiers without importing driver types.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS officers (
		id BIGSERIAL PRIMARY KEY,
		badge_number TEXT UNIQUE NOT NULL,
		credential_fingerprint TEXT NOT NULL,
		full_name TEXT NOT NULL,
		rank_title TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		clearance_level INT NOT NULL DEFAULT 1,
		status TEXT NOT NULL DEFAULT 'active',
		public_key_rsa BYTEA,
		public_key_ed25519 BYTEA,
		last_login TIMESTAMPTZ
	);`,
	`CREATE TABLE IF NOT EXISTS cases (
		id BIGSERIAL PRIMARY KEY,
		case_number TEXT UNIQUE NOT NULL,
		case_title TEXT NOT NULL,
		case_type TEXT NOT NULL,
		priority_level INT NOT NULL DEFAULT 3,
		lead_officer_id BIGINT NOT NULL REFERENCES officers(id),
		case_summary TEXT NOT NULL DEFAULT '',
		classification TEXT NOT NULL DEFAULT 'internal',
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS evidence (
		id BIGSERIAL PRIMARY KEY,
		case_id BIGINT NOT NULL REFERENCES cases(id),
		evidence_number TEXT NOT NULL,
		evidence_type TEXT NOT NULL,
		file_url TEXT NOT NULL,
		file_hash_sha256 CHAR(64) NOT NULL,
		mime_type TEXT NOT NULL DEFAULT '',
		size_bytes BIGINT NOT NULL DEFAULT 0,
		upload_officer_id BIGINT NOT NULL REFERENCES officers(id),
		description TEXT NOT NULL DEFAULT '',
		geo_location JSONB,
		collected_at TIMESTAMPTZ,
		integrity_verified BOOLEAN NOT NULL DEFAULT FALSE,
		chain_of_custody JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (case_id, evidence_number)
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		officer_id BIGINT REFERENCES officers(id),
		action_type TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL DEFAULT '',
		case_id BIGINT,
		detail JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_case_id ON audit_log (case_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_officer_id ON audit_log (officer_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		alert_type TEXT NOT NULL,
		priority INT NOT NULL,
		case_id BIGINT NOT NULL REFERENCES cases(id),
		officer_id BIGINT NOT NULL REFERENCES officers(id),
		title TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		ai_confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_case_id ON alerts (case_id, created_at DESC);`,
}

// Migrate applies the ordered schema statements. Statements are idempotent
// so repeated startup against the same database is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}
