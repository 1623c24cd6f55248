package persistence

import (
	"context"
	"fmt"
	"sync"
)

// KV is a durable string key-value store
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open makes KV of given kind at location. Supported kinds are sqlite, file and memory.
func Open(kind, location string) (KV, error) {
	switch kind {
	case "sqlite":
		return NewSQLiteStore(location)
	case "file":
		return NewFileStore(location)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store kind %q", kind)
	}
}

// MemoryStore implements KV in memory, nothing survives the process
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore makes an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}}
}

// Get returns value for key
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value for key
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Close does nothing
func (m *MemoryStore) Close() error { return nil }
