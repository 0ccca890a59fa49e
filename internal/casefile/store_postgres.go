package casefile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custodia/internal/platform/postgres"
	"custodia/pkg/platform/sentinel"
)

const caseColumns = `id, case_number, case_title, case_type, priority_level,
	lead_officer_id, case_summary, classification, status, created_at, updated_at`

// PostgresStore persists cases in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgresStore.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type caseRow interface {
	Scan(dest ...any) error
}

func scanCase(row caseRow) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.CaseNumber, &c.Title, &c.Type, &c.Priority,
		&c.LeadOfficerID, &c.Summary, &c.Classification, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new case. A duplicate case number surfaces as
// sentinel.ErrConflict so the service can regenerate and retry.
func (s *PostgresStore) Create(ctx context.Context, c *Case) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cases (case_number, case_title, case_type, priority_level,
			lead_officer_id, case_summary, classification, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		c.CaseNumber, c.Title, c.Type, c.Priority,
		c.LeadOfficerID, c.Summary, c.Classification, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("case number %s: %w", c.CaseNumber, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// FindByID returns one case or sentinel.ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Case, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find case: %w", err)
	}
	return c, nil
}

// List returns cases newest first, optionally filtered by status.
func (s *PostgresStore) List(ctx context.Context, status Status) ([]Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, *c)
	}
	return cases, rows.Err()
}

// UpdateStatus transitions a case's status and bumps updated_at.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status Status) (*Case, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx, `
		UPDATE cases SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+caseColumns,
		id, string(status)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("update case status: %w", err)
	}
	return c, nil
}
