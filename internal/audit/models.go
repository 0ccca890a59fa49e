package audit

import "time"

// ActionType is the closed set of auditable officer actions.
type ActionType string

const (
	ActionAuthenticationSuccess ActionType = "authentication_success"
	ActionAuthenticationFailed  ActionType = "authentication_failed"
	ActionCaseCreated           ActionType = "case_created"
	ActionCaseStatusChanged     ActionType = "case_status_changed"
	ActionEvidenceUploaded      ActionType = "evidence_uploaded"
	ActionCustodyAppended       ActionType = "custody_appended"
	ActionIntegrityVerification ActionType = "integrity_verification"
	ActionTimelineAccessed      ActionType = "timeline_accessed"
	ActionBriefGenerated        ActionType = "intelligence_brief_generated"
	ActionAuditTrailAccessed    ActionType = "audit_trail_accessed"
)

// Entry is an immutable audit record. OfficerID is nil only for failed
// authentication attempts, where identity is unconfirmed.
type Entry struct {
	ID           int64          `json:"id"`
	OfficerID    *int64         `json:"officer_id"`
	ActionType   ActionType     `json:"action_type"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	CaseID       *int64         `json:"case_id,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Filter narrows audit queries. All set predicates are ANDed.
type Filter struct {
	CaseID     *int64
	OfficerID  *int64
	ActionType ActionType
	Limit      int
}

// DefaultQueryLimit applies when the caller supplies no limit.
const DefaultQueryLimit = 100
