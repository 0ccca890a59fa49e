package alert

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory alert store for unit tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	alerts []Alert
}

// NewMemory constructs an empty in-memory alert store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Create(_ context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.alerts = append(s.alerts, *a)
	return nil
}

func (s *MemoryStore) ListByCase(_ context.Context, caseID int64) ([]Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []Alert
	for _, a := range s.alerts {
		if a.CaseID == caseID {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return matched, nil
}
