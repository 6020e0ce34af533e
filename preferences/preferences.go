// Package preferences stores per-console display preferences.
package preferences

import (
	"context"
	"sync"
)

// Store keeps the dark-mode flag of each console. An unknown console reads as false.
type Store interface {
	DarkMode(ctx context.Context, consoleID string) (bool, error)
	SetDarkMode(ctx context.Context, consoleID string, enabled bool) error
}

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	darkMode map[string]bool
	lock     sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{darkMode: make(map[string]bool)}
}

func (m *MemoryStore) DarkMode(_ context.Context, consoleID string) (bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.darkMode[consoleID], nil
}

func (m *MemoryStore) SetDarkMode(_ context.Context, consoleID string, enabled bool) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.darkMode[consoleID] = enabled
	return nil
}
