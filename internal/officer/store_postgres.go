package officer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custodia/pkg/platform/sentinel"
)

// PostgresStore resolves officers from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed officer store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const officerColumns = `id, badge_number, credential_fingerprint, full_name, rank_title,
	department, clearance_level, status, public_key_rsa, public_key_ed25519, last_login`

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Officer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+officerColumns+` FROM officers WHERE id = $1`, id)
	return scanOfficer(row)
}

func (s *PostgresStore) FindByBadge(ctx context.Context, badgeNumber string) (*Officer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+officerColumns+` FROM officers WHERE badge_number = $1`, badgeNumber)
	return scanOfficer(row)
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE officers SET last_login = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch last login rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type officerRow interface {
	Scan(dest ...any) error
}

func scanOfficer(row officerRow) (*Officer, error) {
	var (
		o         Officer
		lastLogin sql.NullTime
	)
	err := row.Scan(&o.ID, &o.BadgeNumber, &o.CredentialFingerprint, &o.FullName,
		&o.RankTitle, &o.Department, &o.ClearanceLevel, &o.Status,
		&o.PublicKeyRSA, &o.PublicKeyEd25519, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan officer: %w", err)
	}
	if lastLogin.Valid {
		o.LastLogin = &lastLogin.Time
	}
	return &o, nil
}
