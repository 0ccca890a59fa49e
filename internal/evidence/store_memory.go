package evidence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"custodia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory evidence store for unit tests. It mirrors the
// postgres store's per-case numbering and uniqueness semantics.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Evidence
}

// NewMemory constructs an empty in-memory evidence store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1, items: map[int64]Evidence{}}
}

func (s *MemoryStore) Create(_ context.Context, e *Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, existing := range s.items {
		if existing.CaseID == e.CaseID {
			count++
		}
	}
	e.EvidenceNumber = fmt.Sprintf("EVD-%04d", count+1)
	for _, existing := range s.items {
		if existing.CaseID == e.CaseID && existing.EvidenceNumber == e.EvidenceNumber {
			return fmt.Errorf("evidence number %s in case %d: %w",
				e.EvidenceNumber, e.CaseID, sentinel.ErrConflict)
		}
	}

	e.ID = s.nextID
	s.nextID++
	e.CreatedAt = time.Now().UTC()
	s.items[e.ID] = cloneEvidence(*e)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("evidence %d: %w", id, sentinel.ErrNotFound)
	}
	out := cloneEvidence(e)
	return &out, nil
}

func (s *MemoryStore) ListByCase(_ context.Context, caseID int64) ([]Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Evidence
	for _, e := range s.items {
		if e.CaseID == caseID {
			out = append(out, cloneEvidence(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CollectedAt.Equal(out[j].CollectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CollectedAt.Before(out[j].CollectedAt)
	})
	return out, nil
}

func (s *MemoryStore) AppendCustody(_ context.Context, id int64, entry CustodyEntry) (*Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("evidence %d: %w", id, sentinel.ErrNotFound)
	}
	e.ChainOfCustody = append(e.ChainOfCustody, entry)
	s.items[id] = cloneEvidence(e)
	out := cloneEvidence(e)
	return &out, nil
}

func (s *MemoryStore) SetIntegrityVerified(_ context.Context, id int64, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return fmt.Errorf("evidence %d: %w", id, sentinel.ErrNotFound)
	}
	e.IntegrityVerified = verified
	s.items[id] = e
	return nil
}

func cloneEvidence(e Evidence) Evidence {
	chain := make([]CustodyEntry, len(e.ChainOfCustody))
	copy(chain, e.ChainOfCustody)
	e.ChainOfCustody = chain
	if e.GeoLocation != nil {
		geo := *e.GeoLocation
		e.GeoLocation = &geo
	}
	return e
}
