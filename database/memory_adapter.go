package database

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// MemoryDatabase in-process key-value store for tests and ephemeral runs
type MemoryDatabase struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryDatabase create an empty in-memory database
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{data: make(map[string][]byte)}
}

func (m *MemoryDatabase) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrDatabaseClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *MemoryDatabase) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDatabaseClosed
	}
	m.data[key] = bytes.Clone(value)
	return nil
}

func (m *MemoryDatabase) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDatabaseClosed
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryDatabase) Has(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrDatabaseClosed
	}
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemoryDatabase) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrDatabaseClosed
	}
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryDatabase) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
