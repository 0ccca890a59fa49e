package officer

import "time"

// Status gates whether an officer may authenticate or act.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Officer is a provisioned identity. Credential provisioning and rotation
// happen outside this system; the gatekeeper only verifies and mutates
// status/last-login.
type Officer struct {
	ID                    int64      `json:"id"`
	BadgeNumber           string     `json:"badge_number"`
	CredentialFingerprint string     `json:"-"`
	FullName              string     `json:"full_name"`
	RankTitle             string     `json:"rank_title"`
	Department            string     `json:"department"`
	ClearanceLevel        int        `json:"clearance_level"`
	Status                Status     `json:"status"`
	PublicKeyRSA          []byte     `json:"public_key_rsa,omitempty"`
	PublicKeyEd25519      []byte     `json:"public_key_ed25519,omitempty"`
	LastLogin             *time.Time `json:"last_login,omitempty"`
}

// IsActive reports whether the officer may authenticate or issue commands.
func (o *Officer) IsActive() bool {
	return o != nil && o.Status == StatusActive
}
