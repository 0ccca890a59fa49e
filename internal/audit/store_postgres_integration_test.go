//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/audit"
	"custodia/pkg/testutil/containers"
)

type AuditPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore

	officerID int64
	caseID    int64
}

func TestAuditPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = audit.NewPostgres(s.postgres.DB)
}

func (s *AuditPostgresSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"alerts", "audit_log", "evidence", "cases", "officers"))

	err := s.postgres.DB.QueryRowContext(ctx, `
		INSERT INTO officers (badge_number, credential_fingerprint, full_name)
		VALUES ('B-1001', 'fp', 'Dana Reyes')
		RETURNING id`).Scan(&s.officerID)
	s.Require().NoError(err)

	err = s.postgres.DB.QueryRowContext(ctx, `
		INSERT INTO cases (case_number, case_title, case_type, lead_officer_id)
		VALUES ('CASE-20260301-AUDIT1', 'Warehouse burglary', 'burglary', $1)
		RETURNING id`, s.officerID).Scan(&s.caseID)
	s.Require().NoError(err)
}

func (s *AuditPostgresSuite) append(action audit.ActionType, officerID *int64, caseID *int64, at time.Time) audit.Entry {
	entry := audit.Entry{
		OfficerID:    officerID,
		ActionType:   action,
		ResourceType: "case",
		ResourceID:   "1",
		CaseID:       caseID,
		Detail:       map[string]any{"source": "integration"},
		Timestamp:    at,
	}
	s.Require().NoError(s.store.Append(context.Background(), &entry))
	return entry
}

func (s *AuditPostgresSuite) TestAppendAndListNewestFirst() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.append(audit.ActionCaseCreated, &s.officerID, &s.caseID, base)
	s.append(audit.ActionEvidenceUploaded, &s.officerID, &s.caseID, base.Add(time.Minute))
	s.append(audit.ActionIntegrityVerification, &s.officerID, &s.caseID, base.Add(2*time.Minute))

	entries, err := s.store.List(context.Background(), audit.Filter{Limit: 100})
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(audit.ActionIntegrityVerification, entries[0].ActionType)
	s.Equal(audit.ActionCaseCreated, entries[2].ActionType)
}

func (s *AuditPostgresSuite) TestNullOfficerRoundTrips() {
	entry := s.append(audit.ActionAuthenticationFailed, nil, nil, time.Now().UTC())
	s.NotZero(entry.ID)

	entries, err := s.store.List(context.Background(),
		audit.Filter{ActionType: audit.ActionAuthenticationFailed, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Nil(entries[0].OfficerID)
	s.Nil(entries[0].CaseID)
}

func (s *AuditPostgresSuite) TestFiltersAreANDed() {
	now := time.Now().UTC()
	s.append(audit.ActionCaseCreated, &s.officerID, &s.caseID, now)
	s.append(audit.ActionAuthenticationFailed, nil, nil, now)

	entries, err := s.store.List(context.Background(), audit.Filter{
		CaseID:     &s.caseID,
		OfficerID:  &s.officerID,
		ActionType: audit.ActionCaseCreated,
		Limit:      10,
	})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionCaseCreated, entries[0].ActionType)
}

func (s *AuditPostgresSuite) TestLimitIsHonored() {
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		s.append(audit.ActionCaseCreated, &s.officerID, &s.caseID, base.Add(time.Duration(i)*time.Second))
	}

	entries, err := s.store.List(context.Background(), audit.Filter{Limit: 2})
	s.Require().NoError(err)
	s.Len(entries, 2)
}
