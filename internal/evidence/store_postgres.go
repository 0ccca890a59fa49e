package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"custodia/internal/platform/postgres"
	"custodia/pkg/platform/sentinel"
)

const evidenceColumns = `id, case_id, evidence_number, evidence_type, file_url,
	file_hash_sha256, mime_type, size_bytes, upload_officer_id, description,
	geo_location, collected_at, integrity_verified, chain_of_custody, created_at`

// PostgresStore persists evidence in PostgreSQL. The geolocation and custody
// chain are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgresStore.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type evidenceRow interface {
	Scan(dest ...any) error
}

func scanEvidence(row evidenceRow) (*Evidence, error) {
	var (
		e       Evidence
		geoRaw  []byte
		chain   []byte
		collect sql.NullTime
	)
	err := row.Scan(&e.ID, &e.CaseID, &e.EvidenceNumber, &e.Type, &e.FileURL,
		&e.FileHashSHA256, &e.MIMEType, &e.SizeBytes, &e.UploadedBy,
		&e.Description, &geoRaw, &collect, &e.IntegrityVerified, &chain,
		&e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if collect.Valid {
		e.CollectedAt = collect.Time
	}
	if len(geoRaw) > 0 {
		if err := json.Unmarshal(geoRaw, &e.GeoLocation); err != nil {
			return nil, fmt.Errorf("decode geo location: %w", err)
		}
	}
	if err := json.Unmarshal(chain, &e.ChainOfCustody); err != nil {
		return nil, fmt.Errorf("decode chain of custody: %w", err)
	}
	return &e, nil
}

// Create allocates the next per-case evidence number and inserts the row in
// one transaction. The count-then-insert read has a race window under
// concurrent uploads, which the UNIQUE(case_id, evidence_number) constraint
// closes; the race surfaces as sentinel.ErrConflict for the service to retry.
func (s *PostgresStore) Create(ctx context.Context, e *Evidence) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM evidence WHERE case_id = $1`, e.CaseID,
	).Scan(&count); err != nil {
		return fmt.Errorf("count evidence: %w", err)
	}
	e.EvidenceNumber = fmt.Sprintf("EVD-%04d", count+1)

	var geoRaw []byte
	if e.GeoLocation != nil {
		geoRaw, err = json.Marshal(e.GeoLocation)
		if err != nil {
			return fmt.Errorf("encode geo location: %w", err)
		}
	}
	chain, err := json.Marshal(e.ChainOfCustody)
	if err != nil {
		return fmt.Errorf("encode chain of custody: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO evidence (case_id, evidence_number, evidence_type, file_url,
			file_hash_sha256, mime_type, size_bytes, upload_officer_id,
			description, geo_location, collected_at, chain_of_custody)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		e.CaseID, e.EvidenceNumber, e.Type, e.FileURL,
		e.FileHashSHA256, e.MIMEType, e.SizeBytes, e.UploadedBy,
		e.Description, geoRaw, e.CollectedAt, chain,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("evidence number %s in case %d: %w",
				e.EvidenceNumber, e.CaseID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert evidence: %w", err)
	}
	return tx.Commit()
}

// FindByID returns one evidence record or sentinel.ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Evidence, error) {
	e, err := scanEvidence(s.db.QueryRowContext(ctx,
		`SELECT `+evidenceColumns+` FROM evidence WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("evidence %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find evidence: %w", err)
	}
	return e, nil
}

// ListByCase returns a case's evidence ordered by collection time.
func (s *PostgresStore) ListByCase(ctx context.Context, caseID int64) ([]Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+evidenceColumns+` FROM evidence
		 WHERE case_id = $1
		 ORDER BY collected_at ASC, id ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var items []Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		items = append(items, *e)
	}
	return items, rows.Err()
}

// AppendCustody appends one custody entry to the JSONB chain atomically.
func (s *PostgresStore) AppendCustody(ctx context.Context, id int64, entry CustodyEntry) (*Evidence, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode custody entry: %w", err)
	}
	e, err := scanEvidence(s.db.QueryRowContext(ctx, `
		UPDATE evidence
		SET chain_of_custody = chain_of_custody || $2::jsonb
		WHERE id = $1
		RETURNING `+evidenceColumns,
		id, raw))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("evidence %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("append custody: %w", err)
	}
	return e, nil
}

// SetIntegrityVerified records the latest verification outcome. The
// fingerprint column is deliberately untouched here and everywhere else
// after insert.
func (s *PostgresStore) SetIntegrityVerified(ctx context.Context, id int64, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE evidence SET integrity_verified = $2 WHERE id = $1`, id, verified)
	if err != nil {
		return fmt.Errorf("set integrity verified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set integrity verified: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("evidence %d: %w", id, sentinel.ErrNotFound)
	}
	return nil
}
