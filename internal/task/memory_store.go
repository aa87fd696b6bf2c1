package task

import (
	"context"
	"sync"
)

type memoryCatalog struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewMemoryCatalog constructs an in-memory task catalog.
func NewMemoryCatalog() Catalog {
	return &memoryCatalog{tasks: make(map[string]Task)}
}

func (c *memoryCatalog) Create(_ context.Context, t Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[t.ID] = t
	return nil
}

func (c *memoryCatalog) Get(_ context.Context, id string) (Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (c *memoryCatalog) List(_ context.Context) ([]Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (c *memoryCatalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(c.tasks, id)
	return nil
}

type completionKey struct {
	accountID string
	taskID    string
	day       string
}

type memoryCompletionStore struct {
	mu   sync.Mutex
	seen map[completionKey]Completion
}

// NewMemoryCompletionStore constructs an in-memory completion guard.
func NewMemoryCompletionStore() CompletionStore {
	return &memoryCompletionStore{seen: make(map[completionKey]Completion)}
}

func (s *memoryCompletionStore) TryCreate(_ context.Context, c Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := completionKey{c.AccountID, c.TaskID, c.Day}
	if _, exists := s.seen[key]; exists {
		return ErrAlreadyCompletedToday
	}
	s.seen[key] = c
	return nil
}

func (s *memoryCompletionStore) Delete(_ context.Context, accountID, taskID, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, completionKey{accountID, taskID, day})
	return nil
}
