// Package kvstore provides the durable key-value backends used for client
// state: SQLite on local disk, a GitHub Gist, or memory.
package kvstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for a key that was never written.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// Compile-time interface checks.
var _ Store = (*Memory)(nil)
var _ Store = (*SQLite)(nil)
var _ Store = (*Gist)(nil)

// Memory keeps values in process memory. Useful for tests and for running
// without any persistence.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	getErr error
	putErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the stored value.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Put stores value under key.
func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.values[key] = value
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// SetErrors makes subsequent Get/Put calls fail. Pass nil to clear.
func (m *Memory) SetErrors(getErr, putErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = getErr
	m.putErr = putErr
}
