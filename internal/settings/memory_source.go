package settings

import (
	"context"
	"sync"
)

type memorySource struct {
	mu      sync.RWMutex
	current Settings
}

// NewMemorySource builds an in-process source seeded with defaults.
func NewMemorySource() Source {
	return &memorySource{current: Defaults()}
}

func (m *memorySource) Load(_ context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

func (m *memorySource) Save(_ context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
	return nil
}
