package alert

import (
	"context"
	"fmt"
	"log/slog"

	"custodia/internal/platform/metrics"
)

// Store persists alerts.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	ListByCase(ctx context.Context, caseID int64) ([]Alert, error)
}

// Dispatcher raises and stores system alerts. There is no dedup logic:
// repeated violations raise repeated alerts, by contract.
type Dispatcher struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher constructs a Dispatcher backed by the given store.
func NewDispatcher(store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Raise persists a new pending alert and returns it. Confidence is clamped
// to [0,1]; priority below 1 is coerced to critical.
func (d *Dispatcher) Raise(ctx context.Context, a Alert) (*Alert, error) {
	if a.AIConfidence < 0 {
		a.AIConfidence = 0
	}
	if a.AIConfidence > 1 {
		a.AIConfidence = 1
	}
	if a.Priority < PriorityCritical {
		a.Priority = PriorityCritical
	}
	a.Status = StatusPending

	if err := d.store.Create(ctx, &a); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	if d.logger != nil {
		d.logger.InfoContext(ctx, "alert raised",
			"alert_type", string(a.Type),
			"priority", a.Priority,
			"case_id", a.CaseID,
		)
	}
	d.metrics.IncAlert(string(a.Type))
	return &a, nil
}

// ListByCase returns a case's alerts, newest first.
func (d *Dispatcher) ListByCase(ctx context.Context, caseID int64) ([]Alert, error) {
	alerts, err := d.store.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}
