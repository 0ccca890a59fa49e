package officer

import (
	"context"
	"sync"
	"time"

	"custodia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory officer store for unit tests.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	officers map[int64]Officer
	byBadge  map[string]int64
}

// NewMemory constructs an empty in-memory officer store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		officers: make(map[int64]Officer),
		byBadge:  make(map[string]int64),
	}
}

// Provision inserts an officer as the out-of-band provisioning flow would.
// Test helper; the production store never creates officers.
func (s *MemoryStore) Provision(o Officer) Officer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.nextID
		s.nextID++
	} else if o.ID >= s.nextID {
		s.nextID = o.ID + 1
	}
	s.officers[o.ID] = o
	s.byBadge[o.BadgeNumber] = o.ID
	return o
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*Officer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.officers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &o, nil
}

func (s *MemoryStore) FindByBadge(_ context.Context, badgeNumber string) (*Officer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byBadge[badgeNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	o := s.officers[id]
	return &o, nil
}

func (s *MemoryStore) TouchLastLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.officers[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now().UTC()
	o.LastLogin = &now
	s.officers[id] = o
	return nil
}
