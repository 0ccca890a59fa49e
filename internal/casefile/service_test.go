package casefile_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custodia/internal/alert"
	"custodia/internal/audit"
	"custodia/internal/casefile"
	"custodia/internal/officer"
	dErrors "custodia/pkg/domain-errors"
)

type CasefileSuite struct {
	suite.Suite

	cases  *casefile.MemoryStore
	audits *audit.MemoryStore
	alerts *alert.MemoryStore
	svc    *casefile.Service
	actor  officer.Officer
}

func TestCasefileSuite(t *testing.T) {
	suite.Run(t, new(CasefileSuite))
}

func (s *CasefileSuite) SetupTest() {
	s.cases = casefile.NewMemory()
	s.audits = audit.NewMemory()
	s.alerts = alert.NewMemory()
	s.svc = casefile.New(s.cases, audit.NewRecorder(s.audits), alert.NewDispatcher(s.alerts))
	s.actor = officer.Officer{ID: 7, BadgeNumber: "B-1001", Status: officer.StatusActive}
}

var caseNumberPattern = regexp.MustCompile(`^CASE-\d{8}-[0-9A-F]{6}$`)

func (s *CasefileSuite) TestCreate() {
	s.Run("creates a case with generated number and defaults", func() {
		s.SetupTest()

		c, err := s.svc.Create(context.Background(), casefile.CreateInput{
			Title: "Warehouse burglary",
			Type:  "burglary",
		}, &s.actor)
		require.NoError(s.T(), err)
		s.Regexp(caseNumberPattern, c.CaseNumber)
		s.Equal(3, c.Priority)
		s.Equal("internal", c.Classification)
		s.Equal(casefile.StatusOpen, c.Status)
		s.Equal(s.actor.ID, c.LeadOfficerID)
	})

	s.Run("missing title or type is a validation error with no side effects", func() {
		s.SetupTest()

		_, err := s.svc.Create(context.Background(), casefile.CreateInput{Type: "burglary"}, &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.svc.Create(context.Background(), casefile.CreateInput{Title: "x"}, &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		s.Zero(s.audits.Count())
	})

	s.Run("rejects out-of-range priority", func() {
		s.SetupTest()

		_, err := s.svc.Create(context.Background(), casefile.CreateInput{
			Title: "x", Type: "y", Priority: 9,
		}, &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("audits case_created with the acting officer", func() {
		s.SetupTest()

		c, err := s.svc.Create(context.Background(), casefile.CreateInput{
			Title: "Warehouse burglary", Type: "burglary",
		}, &s.actor)
		require.NoError(s.T(), err)

		entries := s.audits.Entries()
		require.Len(s.T(), entries, 1)
		s.Equal(audit.ActionCaseCreated, entries[0].ActionType)
		require.NotNil(s.T(), entries[0].OfficerID)
		s.Equal(s.actor.ID, *entries[0].OfficerID)
		require.NotNil(s.T(), entries[0].CaseID)
		s.Equal(c.ID, *entries[0].CaseID)
	})

	s.Run("raises a case_created alert at the case priority", func() {
		s.SetupTest()

		c, err := s.svc.Create(context.Background(), casefile.CreateInput{
			Title: "Homicide", Type: "homicide", Priority: 1,
		}, &s.actor)
		require.NoError(s.T(), err)

		alerts, err := s.alerts.ListByCase(context.Background(), c.ID)
		require.NoError(s.T(), err)
		require.Len(s.T(), alerts, 1)
		s.Equal(alert.TypeCaseCreated, alerts[0].Type)
		s.Equal(1, alerts[0].Priority)
		s.InDelta(1.0, alerts[0].AIConfidence, 1e-9)
		s.Equal(alert.StatusPending, alerts[0].Status)
	})

	s.Run("generated case numbers are unique across creates", func() {
		s.SetupTest()

		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			c, err := s.svc.Create(context.Background(), casefile.CreateInput{
				Title: "x", Type: "y",
			}, &s.actor)
			require.NoError(s.T(), err)
			s.False(seen[c.CaseNumber], "duplicate case number %s", c.CaseNumber)
			seen[c.CaseNumber] = true
		}
	})
}

func (s *CasefileSuite) TestGet() {
	s.SetupTest()

	_, err := s.svc.Get(context.Background(), 404)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	created, err := s.svc.Create(context.Background(), casefile.CreateInput{Title: "x", Type: "y"}, &s.actor)
	require.NoError(s.T(), err)

	got, err := s.svc.Get(context.Background(), created.ID)
	require.NoError(s.T(), err)
	s.Equal(created.CaseNumber, got.CaseNumber)
}

func (s *CasefileSuite) TestUpdateStatus() {
	s.Run("transitions status and audits the change", func() {
		s.SetupTest()
		created, err := s.svc.Create(context.Background(), casefile.CreateInput{Title: "x", Type: "y"}, &s.actor)
		require.NoError(s.T(), err)

		updated, err := s.svc.UpdateStatus(context.Background(), created.ID, casefile.StatusClosed, &s.actor)
		require.NoError(s.T(), err)
		s.Equal(casefile.StatusClosed, updated.Status)

		entries := s.audits.Entries()
		require.Len(s.T(), entries, 2)
		s.Equal(audit.ActionCaseStatusChanged, entries[1].ActionType)
		s.Equal("closed", entries[1].Detail["new_status"])
	})

	s.Run("rejects unknown statuses", func() {
		s.SetupTest()

		_, err := s.svc.UpdateStatus(context.Background(), 1, casefile.Status("purged"), &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown case is not_found", func() {
		s.SetupTest()

		_, err := s.svc.UpdateStatus(context.Background(), 404, casefile.StatusClosed, &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
