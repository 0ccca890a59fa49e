// Package integrity recomputes evidence fingerprints on demand and compares
// them with the digest recorded at ingestion.
package integrity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"custodia/internal/alert"
	"custodia/internal/audit"
	"custodia/internal/blobstore"
	"custodia/internal/evidence"
	"custodia/internal/officer"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Result reports one verification run.
type Result struct {
	EvidenceID       int64     `json:"evidence_id"`
	EvidenceNumber   string    `json:"evidence_number"`
	CaseID           int64     `json:"case_id"`
	Verified         bool      `json:"integrity_verified"`
	StoredHash       string    `json:"stored_hash"`
	ComputedHash     string    `json:"computed_hash"`
	VerifyingOfficer int64     `json:"verifying_officer_id"`
	VerifiedAt       time.Time `json:"verified_at"`
}

// Service is the integrity verifier.
type Service struct {
	evidence *evidence.Service
	store    evidence.Store
	blobs    blobstore.Client
	auditor  *audit.Recorder
	alerts   *alert.Dispatcher
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

// New constructs the verifier. It reads through the evidence service but
// writes verification state through the store directly, to keep the
// fingerprint column out of reach.
func New(evidenceSvc *evidence.Service, store evidence.Store, blobs blobstore.Client, auditor *audit.Recorder, alerts *alert.Dispatcher, opts ...Option) *Service {
	s := &Service{
		evidence: evidenceSvc,
		store:    store,
		blobs:    blobs,
		auditor:  auditor,
		alerts:   alerts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify fetches the current bytes, recomputes the SHA-256 digest, and
// compares it with the fingerprint recorded at ingestion. The boolean
// outcome is persisted and audited on every run, match or mismatch; a
// mismatch additionally raises one critical integrity_violation alert.
// Repeated verification of unchanged content yields the same outcome but
// always writes a fresh audit entry.
func (s *Service) Verify(ctx context.Context, evidenceID int64, actor *officer.Officer) (*Result, error) {
	e, err := s.evidence.Get(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	payload, err := s.blobs.Fetch(ctx, e.FileURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Verification fetch failed")
	}
	sum := sha256.Sum256(payload)
	computed := hex.EncodeToString(sum[:])
	verified := subtle.ConstantTimeCompare([]byte(computed), []byte(e.FileHashSHA256)) == 1

	if err := s.store.SetIntegrityVerified(ctx, e.ID, verified); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Evidence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist verification result")
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    &actor.ID,
		ActionType:   audit.ActionIntegrityVerification,
		ResourceType: "evidence",
		ResourceID:   fmt.Sprintf("%d", e.ID),
		CaseID:       &e.CaseID,
		Detail: map[string]any{
			"evidence_number": e.EvidenceNumber,
			"stored_hash":     e.FileHashSHA256,
			"computed_hash":   computed,
			"verified":        verified,
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit verification")
	}

	if !verified {
		if _, err := s.alerts.Raise(ctx, alert.Alert{
			Type:         alert.TypeIntegrityViolation,
			Priority:     alert.PriorityCritical,
			CaseID:       e.CaseID,
			OfficerID:    actor.ID,
			AIConfidence: 1.0,
			Title:        "Evidence integrity violation",
			Message: fmt.Sprintf("Fingerprint mismatch on %s: stored %s, computed %s",
				e.EvidenceNumber, e.FileHashSHA256, computed),
		}); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to raise violation alert")
		}
		if s.metrics != nil {
			s.metrics.IntegrityViolations.Inc()
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "integrity violation",
				"evidence_id", e.ID,
				"case_id", e.CaseID,
				"evidence_number", e.EvidenceNumber,
			)
		}
	}
	outcome := "verified"
	if !verified {
		outcome = "violation"
	}
	s.metrics.IncVerification(outcome)

	return &Result{
		EvidenceID:       e.ID,
		EvidenceNumber:   e.EvidenceNumber,
		CaseID:           e.CaseID,
		Verified:         verified,
		StoredHash:       e.FileHashSHA256,
		ComputedHash:     computed,
		VerifyingOfficer: actor.ID,
		VerifiedAt:       time.Now().UTC(),
	}, nil
}
