package ledger

import (
	"context"
	"sync"
)

type memoryEntryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewMemoryEntryStore creates an in-memory transaction history for tests
// and dev mode.
func NewMemoryEntryStore() EntryStore {
	return &memoryEntryStore{entries: make(map[string][]Entry)}
}

func (s *memoryEntryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.AccountID] = append(s.entries[e.AccountID], e)
	return nil
}

func (s *memoryEntryStore) ListByAccount(_ context.Context, accountID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.entries[accountID]
	// Newest first.
	out := make([]Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
