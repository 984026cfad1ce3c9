package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/haven/internal/apperr"
)

// Memory implements Backend in process memory. Used by tests and ephemeral runs.
type Memory struct {
	mu        sync.RWMutex
	slots     map[string][]byte
	failWrite error
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

// Driver implements Backend.
func (m *Memory) Driver() Driver { return DriverMemory }

// Close implements Backend.
func (m *Memory) Close() error { return nil }

// Get returns a copy of the payload stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.slots[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: slot %s: %w", key, apperr.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of payload under key.
func (m *Memory) Put(_ context.Context, key string, payload []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	m.slots[key] = append([]byte(nil), payload...)
	return nil
}

// Delete drops key, as if the underlying storage had been cleared.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.slots, key)
	m.mu.Unlock()
}

// FailWrites makes every subsequent Put return err. A nil err restores writes.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	m.failWrite = err
	m.mu.Unlock()
}
