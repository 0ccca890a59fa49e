// Package evidence is the evidence ledger. It ingests payloads through the
// blob store, fingerprints the stored bytes, and keeps the append-only
// chain of custody.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"custodia/internal/audit"
	"custodia/internal/blobstore"
	"custodia/internal/casefile"
	"custodia/internal/officer"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Store persists evidence rows. Create allocates the per-case evidence
// number inside its own transaction and reports sentinel.ErrConflict on a
// concurrent allocation race so the caller can retry.
type Store interface {
	Create(ctx context.Context, e *Evidence) error
	FindByID(ctx context.Context, id int64) (*Evidence, error)
	ListByCase(ctx context.Context, caseID int64) ([]Evidence, error)
	AppendCustody(ctx context.Context, id int64, entry CustodyEntry) (*Evidence, error)
	SetIntegrityVerified(ctx context.Context, id int64, verified bool) error
}

// CaseResolver confirms case existence before ingestion. Satisfied by the
// casefile store.
type CaseResolver interface {
	FindByID(ctx context.Context, id int64) (*casefile.Case, error)
}

// sequenceAttempts bounds retries when two uploads race for the same
// per-case sequence number.
const sequenceAttempts = 3

// Service is the evidence ledger.
type Service struct {
	store   Store
	cases   CaseResolver
	blobs   blobstore.Client
	auditor *audit.Recorder
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// New constructs the evidence ledger.
func New(store Store, cases CaseResolver, blobs blobstore.Client, auditor *audit.Recorder, opts ...Option) *Service {
	s := &Service{store: store, cases: cases, blobs: blobs, auditor: auditor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload ingests one evidence item. Ordering matters: the case is resolved
// first, then the bytes are stored, then the fingerprint is computed over
// the bytes fetched back from the blob store, and only then is the row
// persisted and audited. A failure at any step leaves nothing behind.
func (s *Service) Upload(ctx context.Context, input UploadInput, actor *officer.Officer) (*Evidence, error) {
	if input.CaseID == 0 || strings.TrimSpace(input.Type) == "" || input.FileData == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Case id, evidence type and file data required")
	}

	if _, err := s.cases.FindByID(ctx, input.CaseID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve case")
	}

	payload, declaredMIME, err := s.resolvePayload(ctx, input.FileData)
	if err != nil {
		return nil, err
	}

	stored, err := s.blobs.Store(ctx, payload, declaredMIME)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "File upload failed")
	}
	storedBytes, err := s.blobs.Fetch(ctx, stored.URL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "File upload failed")
	}
	sum := sha256.Sum256(storedBytes)

	now := requestcontext.Now(ctx)
	collectedAt := now
	if input.CollectedAt != nil {
		collectedAt = input.CollectedAt.UTC()
	}
	e := &Evidence{
		CaseID:         input.CaseID,
		Type:           input.Type,
		FileURL:        stored.URL,
		FileHashSHA256: hex.EncodeToString(sum[:]),
		MIMEType:       stored.MIMEType,
		SizeBytes:      int64(len(storedBytes)),
		UploadedBy:     actor.ID,
		Description:    input.Description,
		GeoLocation:    input.GeoLocation,
		CollectedAt:    collectedAt,
		ChainOfCustody: []CustodyEntry{{
			OfficerID: actor.ID,
			Officer:   actor.FullName,
			Action:    "uploaded",
			Timestamp: now,
			Location:  locationLabel(input.GeoLocation),
		}},
	}

	var lastErr error
	for attempt := 0; attempt < sequenceAttempts; attempt++ {
		lastErr = s.store.Create(ctx, e)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(lastErr, dErrors.CodeInternal, "failed to persist evidence")
		}
	}
	if lastErr != nil {
		return nil, dErrors.Wrap(lastErr, dErrors.CodeInternal, "failed to allocate evidence number")
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    &actor.ID,
		ActionType:   audit.ActionEvidenceUploaded,
		ResourceType: "evidence",
		ResourceID:   fmt.Sprintf("%d", e.ID),
		CaseID:       &e.CaseID,
		Detail: map[string]any{
			"evidence_number":  e.EvidenceNumber,
			"evidence_type":    e.Type,
			"file_hash_sha256": e.FileHashSHA256,
			"size_bytes":       e.SizeBytes,
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit evidence upload")
	}

	if s.metrics != nil {
		s.metrics.EvidenceUploaded.Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "evidence uploaded",
			"evidence_id", e.ID,
			"evidence_number", e.EvidenceNumber,
			"case_id", e.CaseID,
		)
	}
	return e, nil
}

// resolvePayload turns the caller's file_data into raw bytes plus a declared
// MIME type. Inline data: URIs are decoded locally; http(s) locators are
// fetched through the blob client.
func (s *Service) resolvePayload(ctx context.Context, fileData string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(fileData, "data:"):
		meta, encoded, ok := strings.Cut(strings.TrimPrefix(fileData, "data:"), ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", dErrors.New(dErrors.CodeValidation, "Malformed data URI")
		}
		payload, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", dErrors.New(dErrors.CodeValidation, "Malformed data URI")
		}
		mimeType := strings.TrimSuffix(meta, ";base64")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		return payload, mimeType, nil
	case strings.HasPrefix(fileData, "http://"), strings.HasPrefix(fileData, "https://"):
		payload, err := s.blobs.Fetch(ctx, fileData)
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "File upload failed")
		}
		return payload, "application/octet-stream", nil
	default:
		return nil, "", dErrors.New(dErrors.CodeValidation, "File data must be a data URI or http(s) URL")
	}
}

func locationLabel(geo *GeoLocation) string {
	if geo == nil {
		return ""
	}
	if geo.Label != "" {
		return geo.Label
	}
	return fmt.Sprintf("%.6f,%.6f", geo.Latitude, geo.Longitude)
}

// AppendCustody adds one link to the chain of custody and audits it. The
// chain only ever grows.
func (s *Service) AppendCustody(ctx context.Context, evidenceID int64, action, location string, actor *officer.Officer) (*Evidence, error) {
	if strings.TrimSpace(action) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Custody action required")
	}

	updated, err := s.store.AppendCustody(ctx, evidenceID, CustodyEntry{
		OfficerID: actor.ID,
		Officer:   actor.FullName,
		Action:    action,
		Timestamp: requestcontext.Now(ctx),
		Location:  location,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Evidence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append custody entry")
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    &actor.ID,
		ActionType:   audit.ActionCustodyAppended,
		ResourceType: "evidence",
		ResourceID:   fmt.Sprintf("%d", updated.ID),
		CaseID:       &updated.CaseID,
		Detail: map[string]any{
			"evidence_number": updated.EvidenceNumber,
			"action":          action,
			"location":        location,
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit custody entry")
	}
	return updated, nil
}

// Get returns one evidence record.
func (s *Service) Get(ctx context.Context, id int64) (*Evidence, error) {
	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Evidence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence")
	}
	return e, nil
}

// ListByCase returns a case's evidence ordered by collection time.
func (s *Service) ListByCase(ctx context.Context, caseID int64) ([]Evidence, error) {
	items, err := s.store.ListByCase(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence")
	}
	return items, nil
}
