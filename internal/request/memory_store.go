package request

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.RWMutex
	requests map[string]Request
}

// NewMemoryStore constructs an in-memory request store for tests and dev
// mode.
func NewMemoryStore() Store {
	return &memoryStore{requests: make(map[string]Request)}
}

func (s *memoryStore) Create(_ context.Context, r Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[r.ID]; exists {
		return fmt.Errorf("request %s already exists", r.ID)
	}
	s.requests[r.ID] = r
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return r, nil
}

func (s *memoryStore) Resolve(_ context.Context, id string, decision Status) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if r.Status != StatusPending {
		return Request{}, ErrAlreadyResolved
	}
	now := time.Now().UTC()
	r.Status = decision
	r.ResolvedAt = &now
	s.requests[id] = r
	return r, nil
}

func (s *memoryStore) MarkSettled(_ context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if r.Status == StatusPending {
		return Request{}, fmt.Errorf("request %s is not terminal", id)
	}
	if r.SettledAt == nil {
		now := time.Now().UTC()
		r.SettledAt = &now
		s.requests[id] = r
	}
	return r, nil
}

func (s *memoryStore) ListByAccount(_ context.Context, accountID string, kind Kind) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for _, r := range s.requests {
		if r.AccountID != accountID {
			continue
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *memoryStore) ListPending(_ context.Context, kind Kind) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for _, r := range s.requests {
		if r.Status != StatusPending {
			continue
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(rs []Request) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}
