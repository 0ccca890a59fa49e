package blobstore

import (
	"context"
	"fmt"
	"sync"

	"custodia/pkg/platform/sentinel"
)

// Memory is an in-process blob store for unit tests and local development.
// Objects can be tampered with after storage, which the integrity tests use
// to simulate corruption.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	objects map[string][]byte
}

// NewMemory constructs an empty in-memory blob store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, objects: map[string][]byte{}}
}

func (m *Memory) Store(_ context.Context, payload []byte, mimeType string) (*StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url := fmt.Sprintf("mem://objects/%d", m.nextID)
	m.nextID++
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.objects[url] = buf
	return &StoredObject{URL: url, MIMEType: mimeType}, nil
}

func (m *Memory) Fetch(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.objects[url]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", url, sentinel.ErrNotFound)
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return buf, nil
}

// Tamper replaces the stored bytes at url. Test helper.
func (m *Memory) Tamper(url string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[url]; ok {
		m.objects[url] = payload
	}
}
