// Package blobstore abstracts the file storage backend that holds evidence
// payloads. The relational store keeps only locators and fingerprints; the
// bytes themselves live behind this client.
package blobstore

import "context"

// StoredObject describes a persisted payload.
type StoredObject struct {
	URL      string
	MIMEType string
}

// Client stores and retrieves evidence payloads. Implementations must honor
// context cancellation; callers bound every operation with a deadline.
type Client interface {
	// Store persists the payload and returns its canonical locator.
	Store(ctx context.Context, payload []byte, mimeType string) (*StoredObject, error)
	// Fetch returns the current bytes at the locator.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
