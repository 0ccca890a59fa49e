package casefile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"custodia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory case store for unit tests. It enforces the
// same case number uniqueness the postgres schema does.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	cases  map[int64]Case
	byNum  map[string]int64
}

// NewMemory constructs an empty in-memory case store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1, cases: map[int64]Case{}, byNum: map[string]int64{}}
}

func (s *MemoryStore) Create(_ context.Context, c *Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byNum[c.CaseNumber]; dup {
		return fmt.Errorf("case number %s: %w", c.CaseNumber, sentinel.ErrConflict)
	}
	c.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.cases[c.ID] = *c
	s.byNum[c.CaseNumber] = c.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %d: %w", id, sentinel.ErrNotFound)
	}
	return &c, nil
}

func (s *MemoryStore) List(_ context.Context, status Status) ([]Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Case
	for _, c := range s.cases {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id int64, status Status) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %d: %w", id, sentinel.ErrNotFound)
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	s.cases[id] = c
	return &c, nil
}
