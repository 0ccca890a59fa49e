// Package casefile is the case registry. It owns case numbering, creation
// audit entries, and the case_created alert fan-out.
package casefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"custodia/internal/alert"
	"custodia/internal/audit"
	"custodia/internal/officer"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Store persists cases.
type Store interface {
	Create(ctx context.Context, c *Case) error
	FindByID(ctx context.Context, id int64) (*Case, error)
	List(ctx context.Context, status Status) ([]Case, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Case, error)
}

// caseNumberAttempts bounds the retry loop when a generated case number
// collides. Collisions need a same-day uuid prefix clash, so more than a
// couple of retries means something else is wrong.
const caseNumberAttempts = 3

// Service is the case registry.
type Service struct {
	store   Store
	auditor *audit.Recorder
	alerts  *alert.Dispatcher
	logger  *slog.Logger
	metrics *metrics.Metrics
	caseNum func(time.Time) string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the case registry.
func New(store Store, auditor *audit.Recorder, alerts *alert.Dispatcher, opts ...Option) *Service {
	s := &Service{
		store:   store,
		auditor: auditor,
		alerts:  alerts,
		caseNum: generateCaseNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// generateCaseNumber builds CASE-<YYYYMMDD>-<6 hex>. The random suffix comes
// from a fresh uuid; uniqueness is ultimately enforced by the database.
func generateCaseNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("CASE-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(suffix))
}

// Create registers a new case, audits case_created, and raises a
// case_created alert at the case's priority. Validation failures leave no
// trace in the audit log.
func (s *Service) Create(ctx context.Context, input CreateInput, actor *officer.Officer) (*Case, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Type) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Case title and type required")
	}
	priority := input.Priority
	if priority == 0 {
		priority = 3
	}
	if priority < 1 || priority > 5 {
		return nil, dErrors.New(dErrors.CodeValidation, "Priority level must be between 1 and 5")
	}
	classification := input.Classification
	if classification == "" {
		classification = "internal"
	}

	now := requestcontext.Now(ctx)
	c := &Case{
		Title:          strings.TrimSpace(input.Title),
		Type:           input.Type,
		Priority:       priority,
		LeadOfficerID:  actor.ID,
		Summary:        input.Summary,
		Classification: classification,
		Status:         StatusOpen,
	}

	var lastErr error
	for attempt := 0; attempt < caseNumberAttempts; attempt++ {
		c.CaseNumber = s.caseNum(now)
		lastErr = s.store.Create(ctx, c)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(lastErr, dErrors.CodeInternal, "failed to create case")
		}
	}
	if lastErr != nil {
		return nil, dErrors.Wrap(lastErr, dErrors.CodeInternal, "failed to allocate case number")
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    &actor.ID,
		ActionType:   audit.ActionCaseCreated,
		ResourceType: "case",
		ResourceID:   fmt.Sprintf("%d", c.ID),
		CaseID:       &c.ID,
		Detail: map[string]any{
			"case_number": c.CaseNumber,
			"case_type":   c.Type,
			"priority":    c.Priority,
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit case creation")
	}

	if _, err := s.alerts.Raise(ctx, alert.Alert{
		Type:         alert.TypeCaseCreated,
		CaseID:       c.ID,
		OfficerID:    actor.ID,
		Priority:     c.Priority,
		AIConfidence: 1.0,
		Title:        "New case opened",
		Message:      fmt.Sprintf("New case opened: %s (%s)", c.CaseNumber, c.Type),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to raise case alert")
	}

	if s.metrics != nil {
		s.metrics.CasesCreated.Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "case created",
			"case_id", c.ID,
			"case_number", c.CaseNumber,
			"lead_officer_id", actor.ID,
		)
	}
	return c, nil
}

// Get returns one case by id.
func (s *Service) Get(ctx context.Context, id int64) (*Case, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	return c, nil
}

// List returns cases, optionally filtered by status, newest first.
func (s *Service) List(ctx context.Context, status Status) ([]Case, error) {
	cases, err := s.store.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return cases, nil
}

// UpdateStatus transitions a case and audits case_status_changed. Cases are
// never deleted; archived is as final as it gets.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status, actor *officer.Officer) (*Case, error) {
	switch status {
	case StatusOpen, StatusActive, StatusClosed, StatusArchived:
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "Invalid case status")
	}

	updated, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case status")
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    &actor.ID,
		ActionType:   audit.ActionCaseStatusChanged,
		ResourceType: "case",
		ResourceID:   fmt.Sprintf("%d", updated.ID),
		CaseID:       &updated.ID,
		Detail: map[string]any{
			"case_number": updated.CaseNumber,
			"new_status":  string(status),
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit status change")
	}
	return updated, nil
}
