// Package mocks provides shared test doubles.
package mocks

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-memory implementation of the cache.Cache interface.
// Used for testing without requiring a real Redis instance. Expirations
// are honored so TTL behavior is observable in tests.
type MockCache struct {
	mu      sync.RWMutex
	data    map[string]string
	expires map[string]time.Time
}

// NewMockCache creates a new mock cache instance.
func NewMockCache() *MockCache {
	return &MockCache{
		data:    make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

// Get retrieves a value. A missing or expired key yields an empty string,
// matching the Redis wrapper's behavior.
func (m *MockCache) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if deadline, ok := m.expires[key]; ok && time.Now().After(deadline) {
		return "", nil
	}
	return m.data[key], nil
}

// Set stores a value with an optional expiration.
func (m *MockCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	str, _ := value.(string)
	m.data[key] = str
	if expiration > 0 {
		m.expires[key] = time.Now().Add(expiration)
	} else {
		delete(m.expires, key)
	}
	return nil
}

// Del deletes keys.
func (m *MockCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.data, key)
		delete(m.expires, key)
	}
	return nil
}
