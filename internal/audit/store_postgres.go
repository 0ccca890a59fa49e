package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
)

// PostgresStore persists audit entries in PostgreSQL. The table has no
// UPDATE or DELETE path; this store only ever inserts and selects.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	query := `
		INSERT INTO audit_log (officer_id, action_type, resource_type, resource_id, case_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		entry.OfficerID,
		string(entry.ActionType),
		entry.ResourceType,
		entry.ResourceID,
		entry.CaseID,
		detail,
		entry.Timestamp,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, officer_id, action_type, resource_type, resource_id, case_id, detail, created_at
		FROM audit_log
		WHERE 1=1`
	var args []any
	if filter.CaseID != nil {
		args = append(args, *filter.CaseID)
		query += ` AND case_id = $` + strconv.Itoa(len(args))
	}
	if filter.OfficerID != nil {
		args = append(args, *filter.OfficerID)
		query += ` AND officer_id = $` + strconv.Itoa(len(args))
	}
	if filter.ActionType != "" {
		args = append(args, string(filter.ActionType))
		query += ` AND action_type = $` + strconv.Itoa(len(args))
	}
	args = append(args, filter.Limit)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			officerID sql.NullInt64
			caseID    sql.NullInt64
			detail    []byte
		)
		if err := rows.Scan(&entry.ID, &officerID, &entry.ActionType, &entry.ResourceType,
			&entry.ResourceID, &caseID, &detail, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if officerID.Valid {
			entry.OfficerID = &officerID.Int64
		}
		if caseID.Valid {
			entry.CaseID = &caseID.Int64
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
