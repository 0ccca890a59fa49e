package alert

import "time"

// Type classifies system-raised alerts.
type Type string

const (
	TypeCaseCreated        Type = "case_created"
	TypeIntegrityViolation Type = "integrity_violation"
)

// Status tracks alert resolution. Resolution happens in a separate workflow;
// this subsystem only ever creates pending alerts.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
)

// PriorityCritical is the highest alert priority; integrity violations are
// always raised at this level.
const PriorityCritical = 1

// Alert is a system notification tied to a case. AIConfidence distinguishes
// deterministic events (1.0) from inferred ones.
type Alert struct {
	ID           int64     `json:"id"`
	Type         Type      `json:"alert_type"`
	Priority     int       `json:"priority"`
	CaseID       int64     `json:"case_id"`
	OfficerID    int64     `json:"officer_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	AIConfidence float64   `json:"ai_confidence"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
