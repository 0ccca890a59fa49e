package evidence

import "time"

// GeoLocation pins where a piece of evidence was collected.
type GeoLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

// CustodyEntry is one link in the chain of custody. The chain is append-only:
// entries are never edited or removed.
type CustodyEntry struct {
	OfficerID int64     `json:"officer_id"`
	Officer   string    `json:"officer"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location,omitempty"`
}

// Evidence is a single ingested item. FileHashSHA256 is recorded once at
// ingestion over the stored bytes and never rewritten; verification only
// ever touches IntegrityVerified.
type Evidence struct {
	ID                int64          `json:"id"`
	CaseID            int64          `json:"case_id"`
	EvidenceNumber    string         `json:"evidence_number"`
	Type              string         `json:"evidence_type"`
	FileURL           string         `json:"file_url"`
	FileHashSHA256    string         `json:"file_hash_sha256"`
	MIMEType          string         `json:"mime_type"`
	SizeBytes         int64          `json:"size_bytes"`
	UploadedBy        int64          `json:"uploaded_by"`
	Description       string         `json:"description,omitempty"`
	GeoLocation       *GeoLocation   `json:"geo_location,omitempty"`
	CollectedAt       time.Time      `json:"timestamp_collected"`
	IntegrityVerified bool           `json:"integrity_verified"`
	ChainOfCustody    []CustodyEntry `json:"chain_of_custody"`
	CreatedAt         time.Time      `json:"created_at"`
}

// UploadInput carries the caller-supplied fields for evidence ingestion.
// FileData is either a data: URI with inline base64 content or an http(s)
// locator the blob store ingests from.
type UploadInput struct {
	CaseID      int64        `json:"case_id"`
	Type        string       `json:"evidence_type"`
	FileData    string       `json:"file_data"`
	Description string       `json:"description,omitempty"`
	GeoLocation *GeoLocation `json:"geo_location,omitempty"`
	CollectedAt *time.Time   `json:"timestamp_collected,omitempty"`
}
