package account

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byCode   map[string]string
}

// NewMemoryStore constructs a concurrency-safe in-memory store for tests
// and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{
		accounts: make(map[string]Account),
		byCode:   make(map[string]string),
	}
}

func (s *memoryStore) Create(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.ID]; exists {
		return ErrDuplicateAccount
	}
	if _, exists := s.byCode[a.ReferralCode]; exists {
		return ErrDuplicateAccount
	}
	s.accounts[a.ID] = a
	s.byCode[a.ReferralCode] = a.ID
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (s *memoryStore) GetByReferralCode(_ context.Context, code string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return Account{}, ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *memoryStore) Update(_ context.Context, id string, mutate func(*Account) error) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if err := mutate(&a); err != nil {
		return Account{}, err
	}
	a.Version++
	s.accounts[id] = a
	return a, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byCode, a.ReferralCode)
	delete(s.accounts, id)
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}
