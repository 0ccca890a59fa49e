package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory audit store for unit tests and local
// development. It mirrors the postgres store's ordering semantics.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []Entry
}

// NewMemory constructs an empty in-memory audit store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Entry
	for _, entry := range s.entries {
		if filter.CaseID != nil && (entry.CaseID == nil || *entry.CaseID != *filter.CaseID) {
			continue
		}
		if filter.OfficerID != nil && (entry.OfficerID == nil || *entry.OfficerID != *filter.OfficerID) {
			continue
		}
		if filter.ActionType != "" && entry.ActionType != filter.ActionType {
			continue
		}
		matched = append(matched, entry)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Entries returns a copy of every recorded entry in insertion order.
// Test helper.
func (s *MemoryStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Count returns the total number of entries, regardless of filter.
// Test helper for "exactly one audit entry" assertions.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
