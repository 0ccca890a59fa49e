package casefile

import "time"

// Status of an investigation case. Cases are never deleted; closing a case
// is a status transition, not a removal.
type Status string

const (
	StatusOpen     Status = "open"
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

// Case is an investigation case file.
type Case struct {
	ID             int64     `json:"id"`
	CaseNumber     string    `json:"case_number"`
	Title          string    `json:"case_title"`
	Type           string    `json:"case_type"`
	Priority       int       `json:"priority_level"`
	LeadOfficerID  int64     `json:"lead_officer_id"`
	Summary        string    `json:"case_summary"`
	Classification string    `json:"classification"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateInput carries the caller-supplied fields for a new case.
type CreateInput struct {
	Title          string `json:"case_title"`
	Type           string `json:"case_type"`
	Priority       int    `json:"priority_level"`
	Summary        string `json:"case_summary"`
	Classification string `json:"classification"`
}
