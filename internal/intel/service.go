// Package intel assembles case timelines and intelligence briefs from the
// evidence ledger, the alert stream, and an optional narrative model.
package intel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"custodia/internal/alert"
	"custodia/internal/audit"
	"custodia/internal/casefile"
	"custodia/internal/evidence"
	"custodia/internal/officer"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// TimelineEvent is one evidence item placed on the case timeline.
type TimelineEvent struct {
	EvidenceID     int64     `json:"evidence_id"`
	EvidenceNumber string    `json:"evidence_number"`
	EvidenceType   string    `json:"evidence_type"`
	Description    string    `json:"description,omitempty"`
	CollectedAt    time.Time `json:"timestamp_collected"`
	Location       string    `json:"location,omitempty"`
}

// Timeline is a case's evidence ordered by collection time.
type Timeline struct {
	CaseID      int64           `json:"case_id"`
	CaseNumber  string          `json:"case_number"`
	Events      []TimelineEvent `json:"events"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// BriefRequest selects what the brief includes.
type BriefRequest struct {
	CaseID          int64 `json:"case_id"`
	IncludeEvidence bool  `json:"include_evidence"`
	IncludeTimeline bool  `json:"include_timeline"`
}

// Brief is a structured case summary with a deterministic confidence score
// and an optional model-generated narrative.
type Brief struct {
	Case          *casefile.Case      `json:"case"`
	EvidenceCount int                 `json:"evidence_count"`
	Evidence      []evidence.Evidence `json:"evidence,omitempty"`
	Timeline      []TimelineEvent     `json:"timeline,omitempty"`
	PendingAlerts []alert.Alert       `json:"pending_alerts"`
	Confidence    float64             `json:"confidence_score"`
	Narrative     string              `json:"narrative,omitempty"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// Service builds timelines and briefs.
type Service struct {
	cases      *casefile.Service
	evidence   *evidence.Service
	alerts     *alert.Dispatcher
	auditor    *audit.Recorder
	completion CompletionClient
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCompletion attaches a narrative completion client. Without one the
// brief is purely structural.
func WithCompletion(c CompletionClient) Option {
	return func(s *Service) { s.completion = c }
}

// New constructs the intelligence service.
func New(cases *casefile.Service, evidenceSvc *evidence.Service, alerts *alert.Dispatcher, auditor *audit.Recorder, opts ...Option) *Service {
	s := &Service{cases: cases, evidence: evidenceSvc, alerts: alerts, auditor: auditor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildTimeline orders a case's evidence by collection time and audits the
// access.
func (s *Service) BuildTimeline(ctx context.Context, caseID int64, actor *officer.Officer) (*Timeline, error) {
	c, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	items, err := s.evidence.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	events := make([]TimelineEvent, 0, len(items))
	for _, e := range items {
		location := ""
		if e.GeoLocation != nil {
			location = e.GeoLocation.Label
			if location == "" {
				location = fmt.Sprintf("%.6f,%.6f", e.GeoLocation.Latitude, e.GeoLocation.Longitude)
			}
		}
		events = append(events, TimelineEvent{
			EvidenceID:     e.ID,
			EvidenceNumber: e.EvidenceNumber,
			EvidenceType:   e.Type,
			Description:    e.Description,
			CollectedAt:    e.CollectedAt,
			Location:       location,
		})
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    &actor.ID,
		ActionType:   audit.ActionTimelineAccessed,
		ResourceType: "case",
		ResourceID:   fmt.Sprintf("%d", c.ID),
		CaseID:       &c.ID,
		Detail: map[string]any{
			"case_number": c.CaseNumber,
			"event_count": len(events),
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit timeline access")
	}

	return &Timeline{
		CaseID:      c.ID,
		CaseNumber:  c.CaseNumber,
		Events:      events,
		GeneratedAt: requestcontext.Now(ctx),
	}, nil
}

// GenerateBrief assembles a structured case brief. The confidence score is
// deterministic: 0.5 base, +0.2 when evidence exists, +0.2 when a timeline
// is included, +0.1 when the case has resolved alerts, capped at 1.0. The
// narrative is best-effort; a completion failure degrades to the structural
// brief rather than failing it.
func (s *Service) GenerateBrief(ctx context.Context, req BriefRequest, actor *officer.Officer) (*Brief, error) {
	c, err := s.cases.Get(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	items, err := s.evidence.ListByCase(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	caseAlerts, err := s.alerts.ListByCase(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}

	var pending []alert.Alert
	resolved := 0
	for _, a := range caseAlerts {
		switch a.Status {
		case alert.StatusPending:
			pending = append(pending, a)
		case alert.StatusResolved:
			resolved++
		}
	}

	confidence := 0.5
	if len(items) > 0 {
		confidence += 0.2
	}
	if req.IncludeTimeline {
		confidence += 0.2
	}
	if resolved > 0 {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	brief := &Brief{
		Case:          c,
		EvidenceCount: len(items),
		PendingAlerts: pending,
		Confidence:    confidence,
		GeneratedAt:   requestcontext.Now(ctx),
	}
	if req.IncludeEvidence {
		brief.Evidence = items
	}
	if req.IncludeTimeline {
		timelineEvents := make([]TimelineEvent, 0, len(items))
		for _, e := range items {
			timelineEvents = append(timelineEvents, TimelineEvent{
				EvidenceID:     e.ID,
				EvidenceNumber: e.EvidenceNumber,
				EvidenceType:   e.Type,
				Description:    e.Description,
				CollectedAt:    e.CollectedAt,
			})
		}
		brief.Timeline = timelineEvents
	}

	if s.completion != nil {
		narrative, err := s.completion.Complete(ctx, briefPrompt(c, items, pending))
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "narrative generation failed", "case_id", c.ID, "error", err)
			}
		} else {
			brief.Narrative = narrative
		}
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    &actor.ID,
		ActionType:   audit.ActionBriefGenerated,
		ResourceType: "case",
		ResourceID:   fmt.Sprintf("%d", c.ID),
		CaseID:       &c.ID,
		Detail: map[string]any{
			"case_number":      c.CaseNumber,
			"evidence_count":   len(items),
			"pending_alerts":   len(pending),
			"confidence_score": confidence,
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit brief generation")
	}
	return brief, nil
}

func briefPrompt(c *casefile.Case, items []evidence.Evidence, pending []alert.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize case %s (%s, priority %d): %s\n",
		c.CaseNumber, c.Type, c.Priority, c.Summary)
	fmt.Fprintf(&b, "Evidence on file: %d items.\n", len(items))
	for _, e := range items {
		fmt.Fprintf(&b, "- %s (%s): %s\n", e.EvidenceNumber, e.Type, e.Description)
	}
	fmt.Fprintf(&b, "Pending alerts: %d.\n", len(pending))
	return b.String()
}
