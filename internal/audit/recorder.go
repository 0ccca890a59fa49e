package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store persists audit entries. The contract is append-only: no update or
// delete operation exists, here or in any implementation.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// Mirror receives committed entries for out-of-band consumers (SIEM).
// Implementations must not block the caller.
type Mirror interface {
	Enqueue(entry Entry)
}

// Recorder captures structured audit entries. It is append-only and uses the
// store for persistence so tests can swap sinks easily; the optional mirror
// fans committed entries out to Kafka.
type Recorder struct {
	store    Store
	mirror   Mirror
	logger   *slog.Logger
	queryCap int
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMirror attaches a best-effort mirror sink.
func WithMirror(m Mirror) Option {
	return func(r *Recorder) { r.mirror = m }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// WithQueryCap overrides the hard upper bound on query results.
func WithQueryCap(cap int) Option {
	return func(r *Recorder) {
		if cap > 0 {
			r.queryCap = cap
		}
	}
}

// NewRecorder constructs a Recorder backed by the given store.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store, queryCap: 500}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one entry. The timestamp is set when zero so callers that
// pin request time via context can pass it through explicitly.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := r.store.Append(ctx, &entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	if r.logger != nil {
		r.logger.InfoContext(ctx, string(entry.ActionType),
			"log_type", "audit",
			"event", string(entry.ActionType),
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID,
		)
	}
	if r.mirror != nil {
		r.mirror.Enqueue(entry)
	}
	return nil
}

// Query returns entries matching the filter, newest first. The access itself
// is auditable, so Query appends an audit_trail_accessed entry attributed to
// the accessing officer.
func (r *Recorder) Query(ctx context.Context, accessorID int64, filter Filter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultQueryLimit
	}
	if filter.Limit > r.queryCap {
		filter.Limit = r.queryCap
	}

	entries, err := r.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	detail := map[string]any{"results_count": len(entries)}
	if filter.CaseID != nil {
		detail["case_id"] = *filter.CaseID
	}
	if filter.OfficerID != nil {
		detail["officer_id"] = *filter.OfficerID
	}
	if filter.ActionType != "" {
		detail["action_type"] = string(filter.ActionType)
	}
	if err := r.Record(ctx, Entry{
		OfficerID:    &accessorID,
		ActionType:   ActionAuditTrailAccessed,
		ResourceType: "system",
		Detail:       detail,
	}); err != nil {
		return nil, err
	}
	return entries, nil
}
