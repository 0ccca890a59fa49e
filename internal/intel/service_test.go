package intel_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custodia/internal/alert"
	"custodia/internal/audit"
	"custodia/internal/blobstore"
	"custodia/internal/casefile"
	"custodia/internal/evidence"
	"custodia/internal/intel"
	"custodia/internal/officer"
	dErrors "custodia/pkg/domain-errors"
)

type IntelSuite struct {
	suite.Suite

	caseSvc *casefile.Service
	evSvc   *evidence.Service
	alerts  *alert.MemoryStore
	audits  *audit.MemoryStore
	actor   officer.Officer
	caseID  int64
}

func TestIntelSuite(t *testing.T) {
	suite.Run(t, new(IntelSuite))
}

func (s *IntelSuite) SetupTest() {
	cases := casefile.NewMemory()
	s.alerts = alert.NewMemory()
	s.audits = audit.NewMemory()
	s.actor = officer.Officer{ID: 7, FullName: "Dana Reyes", Status: officer.StatusActive}

	recorder := audit.NewRecorder(s.audits)
	dispatcher := alert.NewDispatcher(s.alerts)
	s.caseSvc = casefile.New(cases, recorder, dispatcher)
	s.evSvc = evidence.New(evidence.NewMemory(), cases, blobstore.NewMemory(), recorder)

	created, err := s.caseSvc.Create(context.Background(), casefile.CreateInput{
		Title: "Op Nightfall", Type: "financial", Summary: "Shell company transfers",
	}, &s.actor)
	require.NoError(s.T(), err)
	s.caseID = created.ID
}

func (s *IntelSuite) newService(opts ...intel.Option) *intel.Service {
	return intel.New(s.caseSvc, s.evSvc, alert.NewDispatcher(s.alerts), audit.NewRecorder(s.audits), opts...)
}

func (s *IntelSuite) uploadAt(collected time.Time, description string) *evidence.Evidence {
	e, err := s.evSvc.Upload(context.Background(), evidence.UploadInput{
		CaseID:      s.caseID,
		Type:        "document",
		FileData:    "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte(description)),
		Description: description,
		CollectedAt: &collected,
	}, &s.actor)
	require.NoError(s.T(), err)
	return e
}

func (s *IntelSuite) TestBuildTimeline() {
	s.Run("orders events by collection time", func() {
		s.SetupTest()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		s.uploadAt(base.Add(2*time.Hour), "second")
		s.uploadAt(base, "first")
		s.uploadAt(base.Add(time.Hour), "middle")

		timeline, err := s.newService().BuildTimeline(context.Background(), s.caseID, &s.actor)
		require.NoError(s.T(), err)
		require.Len(s.T(), timeline.Events, 3)
		s.Equal("first", timeline.Events[0].Description)
		s.Equal("middle", timeline.Events[1].Description)
		s.Equal("second", timeline.Events[2].Description)
	})

	s.Run("audits timeline_accessed", func() {
		s.SetupTest()

		_, err := s.newService().BuildTimeline(context.Background(), s.caseID, &s.actor)
		require.NoError(s.T(), err)

		var found bool
		for _, entry := range s.audits.Entries() {
			if entry.ActionType == audit.ActionTimelineAccessed {
				found = true
				s.Equal(0, entry.Detail["event_count"])
			}
		}
		s.True(found)
	})

	s.Run("unknown case is not_found", func() {
		s.SetupTest()

		_, err := s.newService().BuildTimeline(context.Background(), 404, &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *IntelSuite) TestGenerateBrief() {
	s.Run("empty case scores base confidence", func() {
		s.SetupTest()

		brief, err := s.newService().GenerateBrief(context.Background(), intel.BriefRequest{
			CaseID: s.caseID,
		}, &s.actor)
		require.NoError(s.T(), err)
		s.InDelta(0.5, brief.Confidence, 1e-9)
		s.Zero(brief.EvidenceCount)
	})

	s.Run("evidence and timeline raise the confidence score", func() {
		s.SetupTest()
		s.uploadAt(time.Now().UTC(), "ledger extract")

		brief, err := s.newService().GenerateBrief(context.Background(), intel.BriefRequest{
			CaseID:          s.caseID,
			IncludeEvidence: true,
			IncludeTimeline: true,
		}, &s.actor)
		require.NoError(s.T(), err)
		s.InDelta(0.9, brief.Confidence, 1e-9)
		s.Equal(1, brief.EvidenceCount)
		s.Len(brief.Evidence, 1)
		s.Len(brief.Timeline, 1)
	})

	s.Run("includes pending alerts", func() {
		s.SetupTest()

		brief, err := s.newService().GenerateBrief(context.Background(), intel.BriefRequest{
			CaseID: s.caseID,
		}, &s.actor)
		require.NoError(s.T(), err)
		// case creation raised one pending case_created alert
		require.Len(s.T(), brief.PendingAlerts, 1)
		s.Equal(alert.TypeCaseCreated, brief.PendingAlerts[0].Type)
	})

	s.Run("narrative comes from the completion client", func() {
		s.SetupTest()

		svc := s.newService(intel.WithCompletion(stubCompletion{text: "Asset transfers indicate layering."}))
		brief, err := svc.GenerateBrief(context.Background(), intel.BriefRequest{CaseID: s.caseID}, &s.actor)
		require.NoError(s.T(), err)
		s.Equal("Asset transfers indicate layering.", brief.Narrative)
	})

	s.Run("completion failure degrades to the structural brief", func() {
		s.SetupTest()

		svc := s.newService(intel.WithCompletion(stubCompletion{err: errors.New("model offline")}))
		brief, err := svc.GenerateBrief(context.Background(), intel.BriefRequest{CaseID: s.caseID}, &s.actor)
		require.NoError(s.T(), err)
		s.Empty(brief.Narrative)
		s.InDelta(0.5, brief.Confidence, 1e-9)
	})

	s.Run("audits intelligence_brief_generated with the score", func() {
		s.SetupTest()

		brief, err := s.newService().GenerateBrief(context.Background(), intel.BriefRequest{CaseID: s.caseID}, &s.actor)
		require.NoError(s.T(), err)

		var found bool
		for _, entry := range s.audits.Entries() {
			if entry.ActionType == audit.ActionBriefGenerated {
				found = true
				s.Equal(brief.Confidence, entry.Detail["confidence_score"])
			}
		}
		s.True(found)
	})
}

type stubCompletion struct {
	text string
	err  error
}

func (c stubCompletion) Complete(context.Context, string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}
